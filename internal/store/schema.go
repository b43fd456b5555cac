package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	usersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64},
		{Name: "username", Type: field.TypeString, Size: 64},
		{Name: "first_name", Type: field.TypeString, Size: 128},
		{Name: "last_name", Type: field.TypeString, Size: 128},
		{Name: "language", Type: field.TypeString, Size: 16},
		{Name: "day_counter", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
	}
	usersTable = &schema.Table{
		Name:       "users",
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	subscriptionsColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "tier", Type: field.TypeString, Size: 32},
		{Name: "date_end", Type: field.TypeTime, Nullable: true},
	}
	subscriptionsTable = &schema.Table{
		Name:       "subscriptions",
		Columns:    subscriptionsColumns,
		PrimaryKey: []*schema.Column{subscriptionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "subscriptions_users_subscription",
				Columns:    []*schema.Column{subscriptionsColumns[0]},
				RefColumns: []*schema.Column{usersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	categoriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "name", Type: field.TypeString, Size: 128},
		{Name: "public", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
	}
	categoriesTable = &schema.Table{
		Name:       "categories",
		Columns:    categoriesColumns,
		PrimaryKey: []*schema.Column{categoriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "category_user_id", Columns: []*schema.Column{categoriesColumns[1]}},
			{Name: "category_public", Columns: []*schema.Column{categoriesColumns[3]}},
		},
	}

	phrasesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "category_id", Type: field.TypeInt},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "text_phrase", Type: field.TypeString, Size: 255},
		{Name: "spaced_phrase", Type: field.TypeString, Size: 512},
		{Name: "translation", Type: field.TypeString, Size: 1024},
		{Name: "audio_id", Type: field.TypeString, Size: 255},
		{Name: "image_id", Type: field.TypeString, Size: 255},
		{Name: "comment", Type: field.TypeString, Size: 2048},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "text_key", Type: field.TypeString, Size: 255},
	}
	phrasesTable = &schema.Table{
		Name:       "phrases",
		Columns:    phrasesColumns,
		PrimaryKey: []*schema.Column{phrasesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "phrases_categories_phrases",
				Columns:    []*schema.Column{phrasesColumns[1]},
				RefColumns: []*schema.Column{categoriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "phrase_category_id", Columns: []*schema.Column{phrasesColumns[1]}},
			{
				Name:    "phrase_user_id_text_key",
				Unique:  true,
				Columns: []*schema.Column{phrasesColumns[2], phrasesColumns[10]},
			},
		},
	}

	userProgressColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "date", Type: field.TypeString, Size: 10},
		{Name: "score", Type: field.TypeInt},
	}
	userProgressTable = &schema.Table{
		Name:       "user_progress",
		Columns:    userProgressColumns,
		PrimaryKey: []*schema.Column{userProgressColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "userprogress_user_id_date",
				Unique:  true,
				Columns: []*schema.Column{userProgressColumns[1], userProgressColumns[2]},
			},
		},
	}

	llmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647},
	}
	llmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmRequestEventsColumns,
		PrimaryKey: []*schema.Column{llmRequestEventsColumns[0]},
	}

	tables = []*schema.Table{
		usersTable,
		subscriptionsTable,
		categoriesTable,
		phrasesTable,
		userProgressTable,
		llmRequestEventsTable,
	}
)

func init() {
	subscriptionsTable.ForeignKeys[0].RefTable = usersTable
	phrasesTable.ForeignKeys[0].RefTable = categoriesTable
}

// migrate creates missing tables, columns and indexes.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
