package contrib

import (
	"time"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

func contentTypesModels() []*schema.Model {
	ct := schema.NewModel("contenttypes", "ContentType")
	ct.VerboseName = "content type"
	ct.TableName = "django_content_type"
	ct.Fields = append(ct.Fields,
		&schema.Field{Name: "app_label", Type: schema.String(100)},
		&schema.Field{Name: "model", Type: schema.String(100), VerboseName: "python model class name"},
	)
	ct.UniqueTogether = [][]string{{"app_label", "model"}}
	ct.Managers = []schema.Manager{{Name: "objects", Kind: "ContentTypeManager"}}
	ct.Methods = []string{"get_all_objects_for_this_type", "get_object_for_this_type", "model_class", "natural_key"}

	return []*schema.Model{ct}
}

func authModels() []*schema.Model {
	permission := schema.NewModel("auth", "Permission")
	permission.Fields = append(permission.Fields,
		&schema.Field{Name: "name", Type: schema.String(255)},
		&schema.Field{Name: "codename", Type: schema.String(100)},
	)
	permission.Relations = append(permission.Relations, &schema.Relation{
		Name:     "content_type",
		Kind:     schema.RelationForeignKey,
		To:       "contenttypes.ContentType",
		OnDelete: schema.CascadeCascade,
	})
	permission.UniqueTogether = [][]string{{"content_type", "codename"}}
	permission.Ordering = []string{"content_type__app_label", "content_type__model", "codename"}
	permission.Managers = []schema.Manager{{Name: "objects", Kind: "PermissionManager"}}
	permission.Methods = []string{"natural_key"}

	group := schema.NewModel("auth", "Group")
	group.Fields = append(group.Fields,
		&schema.Field{Name: "name", Type: schema.String(150), Unique: true},
	)
	group.Relations = append(group.Relations, &schema.Relation{
		Name:  "permissions",
		Kind:  schema.RelationManyToMany,
		To:    "Permission",
		Blank: true,
	})
	group.Managers = []schema.Manager{{Name: "objects", Kind: "GroupManager"}}
	group.Methods = []string{"natural_key"}

	abstractUser := schema.NewModel("auth", "AbstractUser")
	abstractUser.Abstract = true
	abstractUser.Fields = append(abstractUser.Fields,
		&schema.Field{Name: "password", Type: schema.String(128)},
		&schema.Field{Name: "last_login", Type: schema.Of(schema.TypeTimestamp).OrNull(), Blank: true, VerboseName: "last login"},
		&schema.Field{
			Name:        "is_superuser",
			Type:        schema.Of(schema.TypeBool),
			VerboseName: "superuser status",
			HelpText:    "Designates that this user has all permissions without explicitly assigning them.",
			Default:     schema.StaticDefault(false),
		},
		&schema.Field{
			Name:     "username",
			Type:     schema.String(150),
			Unique:   true,
			HelpText: "Required. 150 characters or fewer. Letters, digits and @/./+/-/_ only.",
		},
		&schema.Field{Name: "first_name", Type: schema.String(150), Blank: true, VerboseName: "first name"},
		&schema.Field{Name: "last_name", Type: schema.String(150), Blank: true, VerboseName: "last name"},
		&schema.Field{Name: "email", Type: schema.Of(schema.TypeEmail).WithLength(254), Blank: true, VerboseName: "email address"},
		&schema.Field{
			Name:        "is_staff",
			Type:        schema.Of(schema.TypeBool),
			VerboseName: "staff status",
			HelpText:    "Designates whether the user can log into this admin site.",
			Default:     schema.StaticDefault(false),
		},
		&schema.Field{
			Name:        "is_active",
			Type:        schema.Of(schema.TypeBool),
			VerboseName: "active",
			HelpText:    "Designates whether this user should be treated as active.",
			Default:     schema.StaticDefault(true),
		},
		&schema.Field{Name: "date_joined", Type: schema.Of(schema.TypeTimestamp), VerboseName: "date joined", Default: schema.FuncDefault(time.Now)},
	)
	abstractUser.Relations = append(abstractUser.Relations,
		&schema.Relation{
			Name:        "groups",
			Kind:        schema.RelationManyToMany,
			To:          "auth.Group",
			Blank:       true,
			RelatedName: "user_set",
		},
		&schema.Relation{
			Name:        "user_permissions",
			Kind:        schema.RelationManyToMany,
			To:          "auth.Permission",
			Blank:       true,
			RelatedName: "user_set",
		},
	)

	user := schema.NewModel("auth", "User")
	user.Parents = []string{"AbstractUser"}
	user.Managers = []schema.Manager{{Name: "objects", Kind: "UserManager"}}
	user.Methods = []string{"check_password", "clean", "email_user", "get_full_name", "get_short_name", "set_password"}

	return []*schema.Model{permission, group, abstractUser, user}
}

func adminModels() []*schema.Model {
	logEntry := schema.NewModel("admin", "LogEntry")
	logEntry.VerboseName = "log entry"
	logEntry.VerboseNamePlural = "log entries"
	logEntry.TableName = "django_admin_log"
	logEntry.Fields = append(logEntry.Fields,
		&schema.Field{Name: "action_time", Type: schema.Of(schema.TypeTimestamp), VerboseName: "action time", ReadOnly: true, Default: schema.FuncDefault(time.Now)},
		&schema.Field{Name: "object_id", Type: schema.Of(schema.TypeText).OrNull(), Blank: true, VerboseName: "object id"},
		&schema.Field{Name: "object_repr", Type: schema.String(200), VerboseName: "object repr"},
		&schema.Field{
			Name:        "action_flag",
			Type:        schema.Of(schema.TypePositiveSmallInt),
			VerboseName: "action flag",
			Choices: []schema.Choice{
				{Value: 1, Label: "Addition"},
				{Value: 2, Label: "Change"},
				{Value: 3, Label: "Deletion"},
			},
		},
		&schema.Field{Name: "change_message", Type: schema.Of(schema.TypeText), Blank: true, VerboseName: "change message"},
	)
	logEntry.Relations = append(logEntry.Relations,
		&schema.Relation{Name: "user", Kind: schema.RelationForeignKey, To: "auth.User", OnDelete: schema.CascadeCascade},
		&schema.Relation{Name: "content_type", Kind: schema.RelationForeignKey, To: "contenttypes.ContentType", OnDelete: schema.CascadeSetNull, Null: true, Blank: true},
	)
	logEntry.Ordering = []string{"-action_time"}
	logEntry.Managers = []schema.Manager{{Name: "objects", Kind: "LogEntryManager"}}
	logEntry.Methods = []string{"get_admin_url", "get_change_message", "get_edited_object", "is_addition", "is_change", "is_deletion"}

	return []*schema.Model{logEntry}
}

func sessionsModels() []*schema.Model {
	session := schema.NewModel("sessions", "Session")
	session.TableName = "django_session"
	session.Fields = append(session.Fields,
		&schema.Field{Name: "session_key", Type: schema.String(40), PrimaryKey: true, VerboseName: "session key"},
		&schema.Field{Name: "session_data", Type: schema.Of(schema.TypeText), VerboseName: "session data"},
		&schema.Field{Name: "expire_date", Type: schema.Of(schema.TypeTimestamp), DBIndex: true, VerboseName: "expire date"},
	)
	session.Managers = []schema.Manager{{Name: "objects", Kind: "SessionManager"}}
	session.Methods = []string{"get_decoded", "get_session_store_class"}

	return []*schema.Model{session}
}
