package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/maeum-ai/maeum-api/internal/store"
	"github.com/maeum-ai/maeum-api/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Conversations() store.ConversationRepository {
	return &conversationRepo{db: r.executor}
}

func (r *SqliteRepository) Messages() store.MessageRepository {
	return &messageRepo{db: r.executor}
}

func (r *SqliteRepository) Prompts() store.PromptRepository {
	return &promptRepo{db: r.executor}
}

type conversationRepo struct {
	db DB
}

func (r *conversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	query := `
	INSERT INTO conversations (id, user_id, title, model_id, delete_locked, created_at, updated_at)
	VALUES (:id, :user_id, :title, :model_id, :delete_locked, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, conv)
	return err
}

func (r *conversationRepo) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var convs []model.Conversation
	query := `SELECT * FROM conversations WHERE user_id = ? ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &convs, query, userID)
	return convs, err
}

func (r *conversationRepo) UpdateTitle(ctx context.Context, id, title string) error {
	query := `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, title, time.Now(), id)
	return err
}

func (r *conversationRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM conversations WHERE id = ? AND delete_locked = 0`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type messageRepo struct {
	db DB
}

func (r *messageRepo) Create(ctx context.Context, msg *model.Message) error {
	query := `
	INSERT INTO messages (
		id, conversation_id, role, content, model_id,
		input_tokens, output_tokens, cost_usd, is_deleted, created_at
	) VALUES (
		:id, :conversation_id, :role, :content, :model_id,
		:input_tokens, :output_tokens, :cost_usd, :is_deleted, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, msg)
	return err
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	// creation order, soft-deleted rows excluded
	query := `SELECT * FROM messages WHERE conversation_id = ? AND is_deleted = 0 ORDER BY created_at, id`
	err := r.db.SelectContext(ctx, &msgs, query, conversationID)
	return msgs, err
}

func (r *messageRepo) UpdateContent(ctx context.Context, id, content string) error {
	query := `UPDATE messages SET content = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, content, id)
	return err
}

func (r *messageRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE messages SET is_deleted = 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type promptRepo struct {
	db DB
}

func (r *promptRepo) GetActiveBase(ctx context.Context) (*model.PromptTemplate, error) {
	var tpl model.PromptTemplate
	query := `SELECT * FROM prompt_templates WHERE kind = 'base' AND is_active = 1 ORDER BY updated_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &tpl, query); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *promptRepo) GetActiveIntimacy(ctx context.Context, level int) (*model.PromptTemplate, error) {
	var tpl model.PromptTemplate
	query := `SELECT * FROM prompt_templates WHERE kind = 'intimacy' AND intimacy_level = ? AND is_active = 1 ORDER BY updated_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &tpl, query, level); err != nil {
		return nil, err
	}
	return &tpl, nil
}
