// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully. Application code remains
// the primary enforcement point; these schemas catch writes that bypass it.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
			return
		}
		logger.Info("validator ensured", zap.String("collection", coll))
	}

	ensure("users", usersSchema())
	ensure("role_assignments", roleAssignmentsSchema())
	ensure("members", membersSchema())
	ensure("section_settings", sectionSettingsSchema())
	ensure("invite_codes", inviteCodesSchema())
	ensure("audit_log", auditLogSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureCollection idempotently makes sure <name> exists.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			return nil
		}
		logger.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	return db.RunCommand(ctx, cmd).Decode(&out)
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "full_name", "password_hash"},
			"properties": bson.M{
				"email":         bson.M{"bsonType": "string", "minLength": 3},
				"email_ci":      bson.M{"bsonType": "string", "minLength": 3},
				"full_name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
			},
		},
	}
}

func roleAssignmentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "email", "role"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"email":      bson.M{"bsonType": "string", "minLength": 3},
				"role":       bson.M{"enum": bson.A{"officer", "captain", "admin"}},
				"granted_by": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func membersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "section", "squad", "year"},
			"properties": bson.M{
				"name":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":         bson.M{"bsonType": "string", "minLength": 1},
				"section":         bson.M{"enum": bson.A{"company", "junior"}},
				"squad":           bson.M{"bsonType": "string", "minLength": 1},
				"year":            bson.M{"bsonType": "string", "minLength": 1},
				"is_squad_leader": bson.M{"bsonType": "bool"},
				"marks": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"date", "score"},
						"properties": bson.M{
							"date":  bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
							"score": bson.M{"bsonType": bson.A{"double", "int"}, "minimum": -1, "maximum": 10},
							"junior": bson.M{
								"bsonType": "object",
								"required": bson.A{"uniform", "behaviour"},
								"properties": bson.M{
									"uniform":   bson.M{"bsonType": bson.A{"double", "int"}, "minimum": -1, "maximum": 10},
									"behaviour": bson.M{"bsonType": bson.A{"double", "int"}, "minimum": -1, "maximum": 5},
								},
							},
						},
					},
				},
			},
		},
	}
}

func sectionSettingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"section", "meeting_day"},
			"properties": bson.M{
				"section":     bson.M{"enum": bson.A{"company", "junior"}},
				"meeting_day": bson.M{"bsonType": "int", "minimum": 0, "maximum": 6},
			},
		},
	}
}

func inviteCodesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"code", "issuer_id", "target_role", "expires_at", "used", "revoked"},
			"properties": bson.M{
				"code":        bson.M{"bsonType": "string", "minLength": 1},
				"issuer_id":   bson.M{"bsonType": "objectId"},
				"section":     bson.M{"enum": bson.A{"company", "junior"}},
				"target_role": bson.M{"enum": bson.A{"officer", "captain"}},
				"expires_at":  bson.M{"bsonType": "date"},
				"used":        bson.M{"bsonType": "bool"},
				"used_by":     bson.M{"bsonType": "objectId"},
				"revoked":     bson.M{"bsonType": "bool"},
			},
		},
	}
}

func auditLogSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "action", "actor_id", "actor_email"},
			"properties": bson.M{
				"timestamp": bson.M{"bsonType": "date"},
				"action": bson.M{"enum": bson.A{
					"member_created", "member_updated", "member_deleted",
					"settings_updated", "invite_generated", "invite_revoked",
					"role_updated", "role_deleted", "revert_action",
				}},
				"actor_id":    bson.M{"bsonType": "objectId"},
				"actor_email": bson.M{"bsonType": "string", "minLength": 3},
				"reverted":    bson.M{"bsonType": "bool"},
			},
		},
	}
}
