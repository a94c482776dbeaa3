package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

type dialogFixture struct {
	*teamFixture
	dialogs *DialogService
}

func newDialogFixture(t *testing.T) *dialogFixture {
	t.Helper()
	f := newTeamFixture(t)
	f.store.kbs["kb-a"] = &domain.Knowledgebase{ID: "kb-a", Name: "Manuals", EmbdID: "bge-m3@BAAI", Status: domain.StatusValid}
	f.store.kbs["kb-b"] = &domain.Knowledgebase{ID: "kb-b", Name: "FAQ", EmbdID: "bge-m3@Ollama", Status: domain.StatusValid}
	f.store.kbs["kb-c"] = &domain.Knowledgebase{ID: "kb-c", Name: "Papers", EmbdID: "e5@BAAI", Status: domain.StatusValid}
	f.store.kbs["kb-gone"] = &domain.Knowledgebase{ID: "kb-gone", Name: "Old", EmbdID: "bge-m3@BAAI", Status: domain.StatusInvalid}
	return &dialogFixture{teamFixture: f, dialogs: NewDialogService(f.store.repos(), f.svc, nil)}
}

func (f *dialogFixture) teamWithDefaults(t *testing.T, owner *domain.User) *domain.Tenant {
	t.Helper()
	tenant, err := f.svc.CreateTeam(context.Background(), owner.ID, "Team "+owner.Nickname, TeamDefaults{ChatModel: "qwen-plus"})
	require.NoError(t, err)
	return tenant
}

func (f *dialogFixture) join(t *testing.T, owner, member *domain.User, tenantID string) {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.svc.Invite(ctx, owner.ID, tenantID, member.Email)
	require.NoError(t, err)
	require.NoError(t, f.svc.AcceptInvite(ctx, member.ID, tenantID))
}

func TestDialogCreateInActingTenant(t *testing.T) {
	ctx := context.Background()
	f := newDialogFixture(t)
	ann := f.user(t, "ann")
	tenant := f.teamWithDefaults(t, ann)

	view, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{
		Name:  ptr("Support"),
		KBIDs: ptr([]string{"kb-a", "kb-b", "kb-gone"}),
	})
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, view.TenantID)
	assert.Equal(t, "qwen-plus", view.LLMID)
	assert.Equal(t, "Support", view.Name)
	assert.Equal(t, []string{"kb-a", "kb-b"}, []string(view.KBIDs))
	assert.Equal(t, []string{"Manuals", "FAQ"}, view.KBNames)

	stored := f.store.dialogs[view.ID]
	require.NotNil(t, stored)
	assert.Len(t, stored.KBIDs, 3)
}

func TestDialogCreateWithoutTenant(t *testing.T) {
	f := newDialogFixture(t)
	bob := f.user(t, "bob")

	_, err := f.dialogs.Set(context.Background(), bob.ID, DialogRequest{Name: ptr("x")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.Empty(t, f.store.dialogs)
}

func TestDialogCreateValidatesTemplateBeforeTenant(t *testing.T) {
	f := newDialogFixture(t)
	bob := f.user(t, "bob")

	_, err := f.dialogs.Set(context.Background(), bob.ID, DialogRequest{PromptConfig: &PromptConfigRequest{
		System:     ptr("Hello {knowledge}"),
		Parameters: ptr([]domain.Parameter{{Key: "knowledge"}, {Key: "topic"}}),
	}})
	assert.True(t, domain.IsKind(err, domain.KindMissingPlaceholder))
	assert.Empty(t, f.store.dialogs)
}

func TestDialogCreateRejectsMixedEmbeddings(t *testing.T) {
	f := newDialogFixture(t)
	ann := f.user(t, "ann")
	f.teamWithDefaults(t, ann)

	_, err := f.dialogs.Set(context.Background(), ann.ID, DialogRequest{KBIDs: ptr([]string{"kb-a", "kb-c"})})
	assert.True(t, domain.IsKind(err, domain.KindInconsistentEmbeddingModel))
	assert.Empty(t, f.store.dialogs)
}

func TestDialogCreateRejectsUnusedParameter(t *testing.T) {
	f := newDialogFixture(t)
	ann := f.user(t, "ann")
	f.teamWithDefaults(t, ann)

	_, err := f.dialogs.Set(context.Background(), ann.ID, DialogRequest{PromptConfig: &PromptConfigRequest{
		System:     ptr("Hello {knowledge}"),
		Parameters: ptr([]domain.Parameter{{Key: "knowledge"}, {Key: "topic"}}),
	}})
	assert.True(t, domain.IsKind(err, domain.KindMissingPlaceholder))
	assert.Empty(t, f.store.dialogs)
}

func TestDialogUpdate(t *testing.T) {
	ctx := context.Background()
	f := newDialogFixture(t)
	ann, bob, cat := f.user(t, "ann"), f.user(t, "bob"), f.user(t, "cat")
	tenant := f.teamWithDefaults(t, ann)
	f.join(t, ann, bob, tenant.ID)

	created, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{Name: ptr("Support")})
	require.NoError(t, err)

	updated, err := f.dialogs.Set(ctx, bob.ID, DialogRequest{
		DialogID: ptr(created.ID),
		Name:     ptr("Helpdesk"),
		TopN:     ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Helpdesk", updated.Name)
	assert.Equal(t, 3, updated.TopN)
	assert.Equal(t, created.Description, updated.Description)
	assert.Greater(t, updated.UpdateTime, created.UpdateTime)

	_, err = f.dialogs.Set(ctx, cat.ID, DialogRequest{DialogID: ptr(created.ID), Name: ptr("Mine")})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
	assert.Equal(t, "Helpdesk", f.store.dialogs[created.ID].Name)

	_, err = f.dialogs.Set(ctx, ann.ID, DialogRequest{DialogID: ptr("missing"), Name: ptr("x")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestDialogUpdateWithEmptyPatchRereads(t *testing.T) {
	ctx := context.Background()
	f := newDialogFixture(t)
	ann := f.user(t, "ann")
	f.teamWithDefaults(t, ann)

	created, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{})
	require.NoError(t, err)
	same, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{DialogID: ptr(created.ID)})
	require.NoError(t, err)
	assert.Equal(t, created.UpdateTime, same.UpdateTime)
}

func TestDialogGetAndList(t *testing.T) {
	ctx := context.Background()
	f := newDialogFixture(t)
	ann, bob := f.user(t, "ann"), f.user(t, "bob")
	f.teamWithDefaults(t, ann)

	first, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{Name: ptr("first")})
	require.NoError(t, err)
	second, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{Name: ptr("second"), KBIDs: ptr([]string{"kb-a"})})
	require.NoError(t, err)

	got, err := f.dialogs.Get(ctx, ann.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Manuals"}, got.KBNames)

	_, err = f.dialogs.Get(ctx, bob.ID, second.ID)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
	_, err = f.dialogs.Get(ctx, ann.ID, "")
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))

	list, err := f.dialogs.List(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Empty(t, list[1].KBNames)
}

func TestDialogRemove(t *testing.T) {
	ctx := context.Background()
	f := newDialogFixture(t)
	ann, bob, cat := f.user(t, "ann"), f.user(t, "bob"), f.user(t, "cat")
	annTeam := f.teamWithDefaults(t, ann)
	f.join(t, ann, bob, annTeam.ID)
	f.teamWithDefaults(t, cat)

	mine, err := f.dialogs.Set(ctx, ann.ID, DialogRequest{Name: ptr("mine")})
	require.NoError(t, err)
	theirs, err := f.dialogs.Set(ctx, cat.ID, DialogRequest{Name: ptr("theirs")})
	require.NoError(t, err)

	err = f.dialogs.Remove(ctx, ann.ID, []string{mine.ID, theirs.ID})
	require.True(t, domain.IsKind(err, domain.KindUnauthorized))
	assert.Equal(t, domain.StatusValid, f.store.dialogs[mine.ID].Status, "nothing removed when one id is denied")

	err = f.dialogs.Remove(ctx, ann.ID, []string{"missing"})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	require.NoError(t, f.dialogs.Remove(ctx, bob.ID, []string{mine.ID}))
	assert.Equal(t, domain.StatusInvalid, f.store.dialogs[mine.ID].Status)

	_, err = f.dialogs.Get(ctx, ann.ID, mine.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	list, err := f.dialogs.List(ctx, ann.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = f.dialogs.Remove(ctx, ann.ID, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
}
