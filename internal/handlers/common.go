// common.go
//
// LX Notes, a production notes data service for theatrical lighting departments
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of lxnotes.
// lxnotes is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// lxnotes is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with lxnotes.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"github.com/localnerve/lxnotes/internal/utils"
	"gorm.io/gorm"
)

// parseQueryList extracts a list from query parameters,
// supporting both repeated keys and comma-separated values.
func parseQueryList(c *fiber.Ctx, name string) []string {
	seen := make(map[string]struct{})
	var values []string

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) != name {
			continue
		}
		for _, v := range strings.Split(string(value), ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}

	return values
}

// queryBool reads a boolean query parameter, false when absent or malformed
func queryBool(c *fiber.Ctx, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// parseBody decodes the request body and validates its struct tags
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return types.Validationf("Invalid input: %v", err)
	}
	return services.ValidateStruct(dst)
}

// versionedResponse reports a mutation together with the production version it produced
func versionedResponse(c *fiber.Ctx, db *gorm.DB, productionID string, affectedRows int64) error {
	prod, err := services.GetProduction(db, productionID)
	if err != nil {
		return respondError(c, err, "version")
	}
	return utils.MutationSuccessResponse(c, prod.Version, affectedRows)
}

func convertList[T ~string](values []string) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
