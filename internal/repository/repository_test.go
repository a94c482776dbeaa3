package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/pkg/database"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := database.Open(sqlDB, gormlogger.Silent)
	require.NoError(t, err)
	return db, mock
}

func TestUserGetByEmail_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db, nil)

	rows := sqlmock.NewRows([]string{"id", "email", "nickname", "password", "status"}).
		AddRow("u1", "ann@example.com", "ann", "hash", "1")
	mock.ExpectQuery(`SELECT \* FROM "user" WHERE`).WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "ann", user.Nickname)
	assert.True(t, user.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "user" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipIsOwner(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMembershipRepository(db, nil)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_tenant"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.IsOwner(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipListMembers(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMembershipRepository(db, nil)

	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"user_id", "nickname", "email", "avatar", "role", "status", "join_date", "update_date", "tenant_name",
	}).
		AddRow("u1", "ann", "ann@example.com", "", "owner", "1", joined, joined, "Ann's team").
		AddRow("u2", "bob", "bob@example.com", "", "pending", "1", joined, joined, "Ann's team")
	mock.ExpectQuery(`SELECT u.id AS user_id`).WillReturnRows(rows)

	members, err := repo.ListMembers(context.Background(), "t1", nil)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
	assert.Equal(t, "bob@example.com", members[1].Email)
	assert.Equal(t, "Ann's team", members[1].TenantName)
	assert.Equal(t, joined, members[0].JoinDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipListAvailableTeams(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMembershipRepository(db, nil)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"tenant_id", "name", "owner_name", "owner_email", "create_date", "update_date", "has_applied",
	}).
		AddRow("t1", "Ann's team", "ann", "ann@example.com", now, now, true).
		AddRow("t2", "Cat's team", "cat", "cat@example.com", now, now, false)
	mock.ExpectQuery(`SELECT t.id AS tenant_id(.|\n)*j.user_id = \$3 AND j.status = \$4`).
		WithArgs("u2", "1", "u2", "1").
		WillReturnRows(rows)

	teams, err := repo.ListAvailableTeams(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.True(t, teams[0].HasApplied)
	assert.False(t, teams[1].HasApplied)
	assert.Equal(t, "cat", teams[1].OwnerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipListByUser_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMembershipRepository(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "user_tenant"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByUser(context.Background(), "u1", []domain.Role{domain.RoleOwner})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialogListByTenant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDialogRepository(db, nil)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "kb_ids", "prompt_config", "top_n", "status"}).
		AddRow("d2", "t1", "Support", `["kb1","kb2"]`, `{"system":"Use {knowledge}","parameters":[{"key":"knowledge","optional":false}],"top_n":8}`, 6, "1")
	mock.ExpectQuery(`SELECT \* FROM "dialog" WHERE`).WillReturnRows(rows)

	dialogs, err := repo.ListByTenant(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, dialogs, 1)
	d := dialogs[0]
	assert.Equal(t, []string{"kb1", "kb2"}, []string(d.KBIDs))
	pc := d.PromptConfig.Data()
	assert.Equal(t, "Use {knowledge}", pc.System)
	assert.Equal(t, 8, pc.TopN)
	require.Len(t, pc.Parameters, 1)
	assert.Equal(t, "knowledge", pc.Parameters[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgebaseGetByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresKnowledgebaseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "embd_id", "status"}).
		AddRow("kb1", "t1", "Manuals", "bge-m3@BAAI", "1").
		AddRow("kb2", "t1", "FAQ", "bge-m3@Ollama", "0")
	mock.ExpectQuery(`SELECT \* FROM "knowledgebase" WHERE id IN`).WillReturnRows(rows)

	kbs, err := repo.GetByIDs(context.Background(), []string{"kb1", "kb2"})
	require.NoError(t, err)
	require.Len(t, kbs, 2)
	assert.Equal(t, "bge-m3@Ollama", kbs[1].EmbdID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgebaseGetByIDs_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresKnowledgebaseRepository(db)

	kbs, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, kbs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLLMListByFactory(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresLLMRepository(db)

	rows := sqlmock.NewRows([]string{"llm_name", "fid", "model_type", "max_tokens", "status"}).
		AddRow("gpt-4o", "OpenAI", "chat", 128000, "1").
		AddRow("text-embedding-3-small", "OpenAI", "embedding", 8191, "1")
	mock.ExpectQuery(`SELECT \* FROM "llm" WHERE`).WillReturnRows(rows)

	llms, err := repo.ListByFactory(context.Background(), "OpenAI")
	require.NoError(t, err)
	require.Len(t, llms, 2)
	assert.Equal(t, domain.ModelTypeEmbedding, llms[1].ModelType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), domain.ErrNotFound)

	dup := &pq.Error{Code: "23505", Constraint: "idx_user_tenant_one_owned"}
	err := translate(dup)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "idx_user_tenant_one_owned")

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
