package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// memStore is an in-memory backing for every repository the services use.
// Unique constraints mirror the database indexes.
type memStore struct {
	mu         sync.Mutex
	clock      int64
	users      map[string]*domain.User
	tenants    map[string]*domain.Tenant
	members    map[string]*domain.Membership
	dialogs    map[string]*domain.Dialog
	kbs        map[string]*domain.Knowledgebase
	llms       []*domain.LLM
	tenantLLMs []*domain.TenantLLM

	failTenantLLM int
	failMembers   error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*domain.User{},
		tenants: map[string]*domain.Tenant{},
		members: map[string]*domain.Membership{},
		dialogs: map[string]*domain.Dialog{},
		kbs:     map[string]*domain.Knowledgebase{},
	}
}

func (s *memStore) repos() Repositories {
	return Repositories{
		Users:          memUserRepo{s},
		Tenants:        memTenantRepo{s},
		Members:        memMembershipRepo{s},
		Dialogs:        memDialogRepo{s},
		Knowledgebases: memKBRepo{s},
		Catalog:        memLLMRepo{s},
		TenantLLMs:     memTenantLLMRepo{s},
	}
}

// WithinTx runs fn directly. The fake has no rollback.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *memStore) stamp(ts *domain.Timestamps) {
	s.clock++
	now := time.Unix(0, 0).Add(time.Duration(s.clock) * time.Second)
	if ts.CreateTime == 0 {
		ts.CreateTime = now.UnixMilli()
		ts.CreateDate = now
	}
	ts.UpdateTime = now.UnixMilli()
	ts.UpdateDate = now
}

func hasRole(roles []domain.Role, r domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

type memUserRepo struct{ s *memStore }

func (m memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.users {
		if other.Email == u.Email {
			return domain.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	if u.Status == "" {
		u.Status = domain.StatusValid
	}
	m.s.stamp(&u.Timestamps)
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email && u.Status == domain.StatusValid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memUserRepo) Update(_ context.Context, id string, fields map[string]any) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if v, ok := fields["password"].(string); ok {
		u.Password = v
	}
	if v, ok := fields["nickname"].(string); ok {
		u.Nickname = v
	}
	m.s.stamp(&u.Timestamps)
	return nil
}

type memTenantRepo struct{ s *memStore }

func (m memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	m.s.stamp(&t.Timestamps)
	cp := *t
	m.s.tenants[t.ID] = &cp
	return nil
}

func (m memTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type memMembershipRepo struct{ s *memStore }

func (m memMembershipRepo) Create(_ context.Context, row *domain.Membership) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failMembers != nil {
		return m.s.failMembers
	}
	for _, other := range m.s.members {
		if other.UserID == row.UserID && other.TenantID == row.TenantID {
			return domain.ErrDuplicate
		}
		if row.Role == domain.RoleOwner && other.Role == domain.RoleOwner {
			if other.TenantID == row.TenantID {
				return domain.ErrDuplicate
			}
			if other.UserID == row.UserID && other.Status == domain.StatusValid {
				return domain.ErrDuplicate
			}
		}
	}
	if row.ID == "" {
		row.ID = domain.NewID()
	}
	m.s.stamp(&row.Timestamps)
	cp := *row
	m.s.members[row.ID] = &cp
	return nil
}

func (m memMembershipRepo) find(userID, tenantID string) *domain.Membership {
	for _, row := range m.s.members {
		if row.UserID == userID && row.TenantID == tenantID {
			return row
		}
	}
	return nil
}

func (m memMembershipRepo) Find(_ context.Context, userID, tenantID string) (*domain.Membership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if row := m.find(userID, tenantID); row != nil {
		cp := *row
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m memMembershipRepo) IsOwner(_ context.Context, userID, tenantID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row := m.find(userID, tenantID)
	return row != nil && row.Role == domain.RoleOwner && row.Status == domain.StatusValid, nil
}

func (m memMembershipRepo) CountOwned(_ context.Context, userID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, row := range m.s.members {
		if row.UserID == userID && row.Role == domain.RoleOwner && row.Status == domain.StatusValid {
			n++
		}
	}
	return n, nil
}

func (m memMembershipRepo) sorted() []*domain.Membership {
	rows := make([]*domain.Membership, 0, len(m.s.members))
	for _, row := range m.s.members {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreateTime < rows[j].CreateTime })
	return rows
}

func (m memMembershipRepo) ListByUser(_ context.Context, userID string, roles []domain.Role) ([]*domain.Membership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Membership
	for _, row := range m.sorted() {
		if row.UserID == userID && row.Status == domain.StatusValid && hasRole(roles, row.Role) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memMembershipRepo) UpdateRole(_ context.Context, tenantID, userID string, from []domain.Role, to domain.Role) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row := m.find(userID, tenantID)
	if row == nil || !hasRole(from, row.Role) {
		return 0, nil
	}
	row.Role = to
	m.s.stamp(&row.Timestamps)
	return 1, nil
}

func (m memMembershipRepo) Delete(_ context.Context, tenantID, userID string, roles []domain.Role) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row := m.find(userID, tenantID)
	if row == nil || !hasRole(roles, row.Role) {
		return 0, nil
	}
	delete(m.s.members, row.ID)
	return 1, nil
}

func (m memMembershipRepo) ListMembers(_ context.Context, tenantID string, roles []domain.Role) ([]domain.MemberView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.MemberView
	for _, row := range m.sorted() {
		if row.TenantID != tenantID || row.Status != domain.StatusValid || !hasRole(roles, row.Role) {
			continue
		}
		u := m.s.users[row.UserID]
		t := m.s.tenants[row.TenantID]
		out = append(out, domain.MemberView{
			UserID:     u.ID,
			Nickname:   u.Nickname,
			Email:      u.Email,
			Role:       row.Role,
			Status:     row.Status,
			JoinDate:   row.CreateDate,
			UpdateDate: row.UpdateDate,
			TenantName: t.Name,
		})
	}
	return out, nil
}

func (m memMembershipRepo) owner(tenantID string) *domain.User {
	for _, row := range m.s.members {
		if row.TenantID == tenantID && row.Role == domain.RoleOwner {
			return m.s.users[row.UserID]
		}
	}
	return &domain.User{}
}

func (m memMembershipRepo) ListJoinedTenants(_ context.Context, userID string) ([]domain.JoinedTenantView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.JoinedTenantView
	for _, row := range m.sorted() {
		t := m.s.tenants[row.TenantID]
		if row.UserID != userID || row.Status != domain.StatusValid || t == nil || t.Status != domain.StatusValid {
			continue
		}
		o := m.owner(t.ID)
		out = append(out, domain.JoinedTenantView{
			TenantID: t.ID, Name: t.Name, Role: row.Role, LLMID: t.LLMID, EmbdID: t.EmbdID,
			OwnerName: o.Nickname, OwnerEmail: o.Email, CreateDate: t.CreateDate, UpdateDate: t.UpdateDate,
		})
	}
	return out, nil
}

func (m memMembershipRepo) ListAvailableTeams(_ context.Context, userID string) ([]domain.TeamView, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.TeamView
	for _, t := range m.s.tenants {
		if t.Status != domain.StatusValid {
			continue
		}
		row := m.find(userID, t.ID)
		if row != nil && (row.Role == domain.RoleOwner || row.Role == domain.RoleNormal) {
			continue
		}
		o := m.owner(t.ID)
		out = append(out, domain.TeamView{
			TenantID: t.ID, Name: t.Name, OwnerName: o.Nickname, OwnerEmail: o.Email,
			CreateDate: t.CreateDate, UpdateDate: t.UpdateDate,
			HasApplied: row != nil && row.Role == domain.RolePending,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateDate.After(out[j].CreateDate) })
	return out, nil
}

type memDialogRepo struct{ s *memStore }

func (m memDialogRepo) Create(_ context.Context, d *domain.Dialog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d.ID == "" {
		d.ID = domain.NewID()
	}
	m.s.stamp(&d.Timestamps)
	cp := *d
	m.s.dialogs[d.ID] = &cp
	return nil
}

func (m memDialogRepo) GetByID(_ context.Context, id string) (*domain.Dialog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d, ok := m.s.dialogs[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// UpdateByID understands the columns the resolver emits.
func (m memDialogRepo) UpdateByID(_ context.Context, id string, fields map[string]any) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	d, ok := m.s.dialogs[id]
	if !ok {
		return 0, nil
	}
	for col, v := range fields {
		switch col {
		case "name":
			d.Name = v.(string)
		case "description":
			d.Description = v.(string)
		case "icon":
			d.Icon = v.(string)
		case "llm_id":
			d.LLMID = v.(string)
		case "rerank_id":
			d.RerankID = v.(string)
		case "top_n":
			d.TopN = v.(int)
		case "top_k":
			d.TopK = v.(int)
		case "similarity_threshold":
			d.SimilarityThreshold = v.(float64)
		case "vector_similarity_weight":
			d.VectorSimilarityWeight = v.(float64)
		case "kb_ids":
			d.KBIDs = v.(datatypes.JSONSlice[string])
		case "llm_setting":
			d.LLMSetting = v.(datatypes.JSONType[domain.LLMSetting])
		case "prompt_config":
			d.PromptConfig = v.(datatypes.JSONType[domain.PromptConfig])
		default:
			return 0, errors.New("unexpected column " + col)
		}
	}
	m.s.stamp(&d.Timestamps)
	return 1, nil
}

func (m memDialogRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.Dialog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Dialog
	for _, d := range m.s.dialogs {
		if d.TenantID == tenantID && d.Status == domain.StatusValid {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime > out[j].CreateTime })
	return out, nil
}

func (m memDialogRepo) SoftDelete(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range ids {
		if d, ok := m.s.dialogs[id]; ok {
			d.Status = domain.StatusInvalid
		}
	}
	return nil
}

type memKBRepo struct{ s *memStore }

func (m memKBRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.Knowledgebase, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.Knowledgebase
	for _, id := range ids {
		if kb, ok := m.s.kbs[id]; ok {
			cp := *kb
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memLLMRepo struct{ s *memStore }

func (m memLLMRepo) Create(_ context.Context, l *domain.LLM) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.llms = append(m.s.llms, l)
	return nil
}

func (m memLLMRepo) ListByFactory(_ context.Context, factory string) ([]*domain.LLM, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*domain.LLM
	for _, l := range m.s.llms {
		if l.FID == factory {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m memLLMRepo) List(_ context.Context) ([]*domain.LLM, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*domain.LLM(nil), m.s.llms...), nil
}

type memTenantLLMRepo struct{ s *memStore }

func (m memTenantLLMRepo) Create(_ context.Context, row *domain.TenantLLM) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failTenantLLM > 0 {
		m.s.failTenantLLM--
		return errors.New("connection reset")
	}
	for _, other := range m.s.tenantLLMs {
		if other.TenantID == row.TenantID && other.LLMFactory == row.LLMFactory && other.LLMName == row.LLMName {
			return domain.ErrDuplicate
		}
	}
	cp := *row
	m.s.tenantLLMs = append(m.s.tenantLLMs, &cp)
	return nil
}
