package services

import (
	"context"
	"strings"
	"testing"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/notify"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotesEmailInline(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Ghost special", CueNumber: "14"})
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleWork, Title: "Hang boom", Type: "work"})

	sender := &fakeSender{}
	svc := &EmailService{DB: db, Engine: printing.NewTemplateEngine(), Sender: sender, FromName: "LX Notes"}

	result, err := svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{
		Message: &EmailMessageConfig{
			Recipients:         []string{" designer@example.com "},
			Subject:            "{{PRODUCTION_TITLE}}: {{NOTE_COUNT}} notes",
			Message:            "Notes from tonight.\n\nThanks, {{SENDER_NAME}}",
			IncludeNotesInBody: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hamlet: 2 notes", result.Subject)
	assert.Equal(t, []string{"designer@example.com"}, result.Recipients)
	assert.Empty(t, result.Warnings)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"designer@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "Thanks, LX Notes")
	assert.Contains(t, msg.Body, "Ghost special")
	assert.Contains(t, msg.Body, "Hang boom")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestSendNotesEmailFromPreset(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleWork, Title: "Hang boom", Type: "work"})
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Storm", CueNumber: "3"})

	filter := mustPreset(t, db, prod.ID, models.PresetFilterSort, "Work", `{"moduleType":"work"}`)
	preset := mustPreset(t, db, prod.ID, models.PresetEmailMessage, "Work call",
		`{"recipients":["crew@example.com","me@example.com"],"subject":"Work notes","message":"{{TODO_COUNT}} open","filterAndSortPresetId":"`+filter.ID+`","attachPdf":true}`)

	sender := &fakeSender{}
	store := newMemoryStore()
	renderer := &fakeRenderer{}
	svc := &EmailService{DB: db, Engine: printing.NewTemplateEngine(), Renderer: renderer, Sender: sender, Store: store}

	result, err := svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{PresetID: preset.ID, SenderName: "SM"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NoteCount)
	assert.True(t, strings.HasPrefix(result.PDFLink, "https://objects.example.test/reports/"+prod.ID+"/"))
	require.Len(t, renderer.requests, 1)
	assert.Contains(t, renderer.requests[0].HTML, "Hang boom")

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "reports/"+prod.ID+"/"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, "1 open")
	assert.Len(t, sender.sent[0].To, 2)
}

func TestSendNotesEmailWithoutStorageWarns(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")

	sender := &fakeSender{}
	svc := &EmailService{DB: db, Engine: printing.NewTemplateEngine(), Sender: sender}
	result, err := svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{
		Message: &EmailMessageConfig{Recipients: []string{"a@example.com"}, Subject: "s", AttachPdf: true},
	})
	require.NoError(t, err)
	assert.Empty(t, result.PDFLink)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "object storage")
	assert.Len(t, sender.sent, 1)
}

func TestSendNotesEmailErrors(t *testing.T) {
	db := testutil.NewDB(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	svc := &EmailService{DB: db, Engine: printing.NewTemplateEngine(), Sender: notify.Disabled{}}

	_, err := svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{})
	assertValidation(t, err)

	_, err = svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{
		Message: &EmailMessageConfig{Recipients: []string{"not-an-address"}, Subject: "s"},
	})
	assertValidation(t, err)

	_, err = svc.SendNotesEmail(context.Background(), prod.ID, EmailRequest{
		Message: &EmailMessageConfig{Recipients: []string{"a@example.com"}, Subject: "s"},
	})
	assert.ErrorIs(t, err, notify.ErrNotConfigured)
}

func TestMessageHTML(t *testing.T) {
	assert.Equal(t, "<p>one<br>two</p><p>three &amp; four</p>", messageHTML("one\ntwo\r\n\r\nthree & four"))
	assert.Equal(t, "<b>as is</b>", messageHTML("<b>as is</b>"))
}
