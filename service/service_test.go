package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"familyfinance/apperr"
	"familyfinance/config"
	"familyfinance/database"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type published struct {
	topic string
	event string
}

// recorder 记录发布的事件
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Subscribe(string, string)   {}
func (r *recorder) Unsubscribe(string, string) {}

func (r *recorder) Publish(topic, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, event})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// names 某个家庭收到的事件名
func (r *recorder) names(familyID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topic := realtime.FamilyTopic(familyID)
	var out []string
	for _, e := range r.events {
		if e.topic == topic {
			out = append(out, e.event)
		}
	}
	return out
}

type eviction struct {
	familyID, userID uint
}

type fakeRooms struct {
	mu      sync.Mutex
	evicted []eviction
}

func (f *fakeRooms) EvictUser(familyID, userID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, eviction{familyID, userID})
	return 1
}

type sentInvite struct {
	to, inviter, family, code, url string
}

type fakeMailer struct {
	enabled bool
	err     error
	sent    []sentInvite
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendInviteEmail(to, inviter, family, code, url string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentInvite{to, inviter, family, code, url})
	return nil
}

type testEnv struct {
	svc     *Service
	store   *database.Store
	rec     *recorder
	journal *journal.Journal
	rooms   *fakeRooms
	mailer  *fakeMailer
}

func setupService(t *testing.T) *testEnv {
	store, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		store:   store,
		rec:     &recorder{},
		journal: journal.New(journal.DefaultSize),
		rooms:   &fakeRooms{},
		mailer:  &fakeMailer{enabled: true},
	}
	env.svc = New(Deps{
		Store:   store,
		Emitter: realtime.NewEmitter(env.rec, env.journal),
		Rooms:   env.rooms,
		Mailer:  env.mailer,
		BaseURL: "http://localhost:8080/",
	})
	return env
}

func (e *testEnv) register(t *testing.T, first, email string) *models.User {
	u, err := e.svc.Register(context.Background(), RegisterInput{
		FirstName: first,
		LastName:  "Test",
		Email:     email,
		Password:  "secret123",
	})
	require.NoError(t, err)
	return u
}

// family 管理员建家庭，家长和孩子加入
func (e *testEnv) family(t *testing.T) (fam *models.Family, admin, parent, child *models.User) {
	ctx := context.Background()
	admin = e.register(t, "Ada", "ada@example.com")
	parent = e.register(t, "Paul", "paul@example.com")
	child = e.register(t, "Cleo", "cleo@example.com")

	fam, err := e.svc.CreateFamily(ctx, admin.ID, "Lovelace")
	require.NoError(t, err)
	_, err = e.svc.JoinFamily(ctx, parent.ID, fam.InviteCode)
	require.NoError(t, err)
	_, err = e.svc.JoinFamily(ctx, child.ID, fam.InviteCode)
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignRole(ctx, admin.ID, child.ID, models.RoleChild))
	e.rec.reset()
	return fam, admin, parent, child
}

func (e *testEnv) countCategories(t *testing.T, familyID uint, name string) int64 {
	var n int64
	require.NoError(t, e.store.DB().Model(&models.Category{}).
		Where("family_id = ? AND name_key = ?", familyID, models.CategoryKey(name)).
		Count(&n).Error)
	return n
}

func assertKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e), "not an apperr: %v", err)
	assert.Equal(t, kind, e.Kind)
	if msg != "" {
		assert.Equal(t, msg, e.Message)
	}
}

func TestCanPerform(t *testing.T) {
	tests := []struct {
		action                Action
		admin, parent, child bool
	}{
		{ActionUpdateFamily, true, false, false},
		{ActionDeleteFamily, true, false, false},
		{ActionRemoveMember, true, false, false},
		{ActionAssignRole, true, false, false},
		{ActionManageBudgets, true, true, false},
		{ActionCreateGoal, true, true, false},
		{ActionManageCategories, true, true, false},
		{ActionInviteMember, true, true, false},
		{ActionCreateTransaction, true, true, true},
		{ActionDeleteTransaction, true, true, true},
		{ActionAdjustGoal, true, true, true},
		{ActionExport, true, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.admin, CanPerform(models.RoleAdmin, tt.action))
			assert.Equal(t, tt.parent, CanPerform(models.RoleParent, tt.action))
			assert.Equal(t, tt.child, CanPerform(models.RoleChild, tt.action))
		})
	}

	assert.False(t, CanPerform(models.RoleAdmin, Action("unknown")))
	assert.False(t, CanPerform(models.Role("guest"), ActionCreateTransaction))
}

func TestCreateFamily_SeedsCategoriesAndAdmin(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	u := env.register(t, "Ada", "ada@example.com")

	fam, err := env.svc.CreateFamily(ctx, u.ID, "  Lovelace  ")
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", fam.Name)
	assert.True(t, models.ValidInviteCode(fam.InviteCode))

	p, err := env.svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)
	require.NotNil(t, p.FamilyID)
	assert.Equal(t, fam.ID, *p.FamilyID)

	cats, err := env.svc.ListCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.GetDefaultCategories()))
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, models.CategoryOthers))

	events := env.journal.History(fam.ID)
	require.Len(t, events, 1)
	assert.Equal(t, "Family created", events[0].Title)
}

func TestCreateFamily_Validation(t *testing.T) {
	env := setupService(t)
	u := env.register(t, "Ada", "ada@example.com")

	_, err := env.svc.CreateFamily(context.Background(), u.ID, "   ")
	assertKind(t, err, apperr.KindValidation, "")
	assert.Empty(t, env.rec.events)
}

func TestJoinFamily(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	admin := env.register(t, "Ada", "ada@example.com")
	other := env.register(t, "Bob", "bob@example.com")
	fam, err := env.svc.CreateFamily(ctx, admin.ID, "Lovelace")
	require.NoError(t, err)

	_, err = env.svc.JoinFamily(ctx, other.ID, "")
	assertKind(t, err, apperr.KindValidation, "Missing invite code")
	_, err = env.svc.JoinFamily(ctx, other.ID, "abc")
	assertKind(t, err, apperr.KindValidation, "Invalid invite code format")
	missing := "ZZZZZZ"
	if fam.InviteCode == missing {
		missing = "YYYYYY"
	}
	_, err = env.svc.JoinFamily(ctx, other.ID, missing)
	assertKind(t, err, apperr.KindNotFound, "Invalid invite code")

	env.rec.reset()
	joined, err := env.svc.JoinFamily(ctx, other.ID, " "+fam.InviteCode+" ")
	require.NoError(t, err)
	assert.Equal(t, fam.ID, joined.ID)
	assert.Equal(t, []string{realtime.EventUpdateMembers, realtime.EventActivity}, env.rec.names(fam.ID))

	view, err := env.svc.Members(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, fam.InviteCode, view.InviteCode)
	assert.Equal(t, "blue", view.FamilyColor)
	require.Len(t, view.Members, 2)
	assert.Equal(t, models.RoleParent, view.Members[1].Role)
}

func TestJoinFamily_SoleAdminCannotAbandonMembers(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, _, _ := env.family(t)

	other := env.register(t, "Zed", "zed@example.com")
	fam2, err := env.svc.CreateFamily(ctx, other.ID, "Second")
	require.NoError(t, err)

	_, err = env.svc.JoinFamily(ctx, admin.ID, fam2.InviteCode)
	assertKind(t, err, apperr.KindValidation, "Assign another admin before leaving your family")

	p, err := env.svc.Profile(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, fam.ID, *p.FamilyID)
}

func TestSwitchFamily_EvictsFromPreviousRoom(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, parent, _ := env.family(t)

	other := env.register(t, "Zed", "zed@example.com")
	fam2, err := env.svc.CreateFamily(ctx, other.ID, "Second")
	require.NoError(t, err)
	env.rec.reset()

	_, err = env.svc.JoinFamily(ctx, parent.ID, fam2.InviteCode)
	require.NoError(t, err)
	assert.Contains(t, env.rooms.evicted, eviction{fam.ID, parent.ID})
	assert.Equal(t, []string{realtime.EventUpdateMembers}, env.rec.names(fam.ID))
}

func TestRemoveMember(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, child := env.family(t)

	err := env.svc.RemoveMember(ctx, parent.ID, child.ID)
	assertKind(t, err, apperr.KindAuthorization, "Unauthorized")

	err = env.svc.RemoveMember(ctx, admin.ID, admin.ID)
	assertKind(t, err, apperr.KindAuthorization, "Cannot remove an admin")

	err = env.svc.RemoveMember(ctx, admin.ID, 9999)
	assertKind(t, err, apperr.KindNotFound, "Member not found in family")

	require.NoError(t, env.svc.RemoveMember(ctx, admin.ID, child.ID))
	assert.Equal(t, []eviction{{fam.ID, child.ID}}, env.rooms.evicted)

	p, err := env.svc.Profile(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, p.FamilyID)
	assert.Equal(t, models.RoleChild, p.Role)

	_, err = env.svc.ListTransactions(ctx, child.ID)
	assertKind(t, err, apperr.KindNotFound, "No family found")
}

func TestAssignRole(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, admin, parent, child := env.family(t)

	err := env.svc.AssignRole(ctx, admin.ID, child.ID, models.Role("owner"))
	assertKind(t, err, apperr.KindValidation, "Invalid role")

	err = env.svc.AssignRole(ctx, admin.ID, admin.ID, models.RoleParent)
	assertKind(t, err, apperr.KindValidation, "Cannot remove your own admin role")

	err = env.svc.AssignRole(ctx, parent.ID, child.ID, models.RoleParent)
	assertKind(t, err, apperr.KindAuthorization, "Unauthorized - Admin only")

	require.NoError(t, env.svc.AssignRole(ctx, admin.ID, parent.ID, models.RoleAdmin))
	// 现在有两名管理员，可以把另一名降级
	require.NoError(t, env.svc.AssignRole(ctx, parent.ID, admin.ID, models.RoleParent))

	err = env.svc.AssignRole(ctx, admin.ID, child.ID, models.RoleParent)
	assertKind(t, err, apperr.KindAuthorization, "")
}

func TestDeleteFamily(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, child := env.family(t)

	_, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 10, Description: "milk", Type: models.TxExpense, Category: "Groceries"})
	require.NoError(t, err)

	err = env.svc.DeleteFamily(ctx, parent.ID, "secret123")
	assertKind(t, err, apperr.KindAuthorization, "")
	err = env.svc.DeleteFamily(ctx, admin.ID, "")
	assertKind(t, err, apperr.KindValidation, "Password required")
	err = env.svc.DeleteFamily(ctx, admin.ID, "wrong")
	assertKind(t, err, apperr.KindAuthorization, "Invalid password")

	env.rec.reset()
	require.NoError(t, env.svc.DeleteFamily(ctx, admin.ID, "secret123"))
	assert.Equal(t, []string{realtime.EventUpdateFamily}, env.rec.names(fam.ID))
	assert.Empty(t, env.journal.History(fam.ID))
	assert.Len(t, env.rooms.evicted, 3)

	for _, u := range []*models.User{admin, parent, child} {
		p, err := env.svc.Profile(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, p.FamilyID)
	}
	var left int64
	require.NoError(t, env.store.DB().Model(&models.Transaction{}).Where("family_id = ?", fam.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestUpdateFamily(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, _ := env.family(t)

	_, err := env.svc.UpdateFamily(ctx, parent.ID, FamilyInput{Name: "X"})
	assertKind(t, err, apperr.KindAuthorization, "")

	color := "green"
	updated, err := env.svc.UpdateFamily(ctx, admin.ID, FamilyInput{Name: "Renamed", Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "green", updated.Color)
	assert.Contains(t, env.rec.names(fam.ID), realtime.EventUpdateFamily)
}

func TestBudgetStatus_SpentIsDerived(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, admin, parent, child := env.family(t)

	add := func(u *models.User, amount float64, typ models.TxType, cat string) {
		_, err := env.svc.CreateTransaction(ctx, u.ID, TransactionInput{Amount: amount, Description: "x", Type: typ, Category: cat})
		require.NoError(t, err)
	}
	_, err := env.svc.UpsertBudget(ctx, admin.ID, BudgetInput{Category: "groceries", Amount: 200})
	require.NoError(t, err)

	add(parent, 30, models.TxExpense, "Groceries")
	add(child, 20.5, models.TxExpense, "GROCERIES")
	add(parent, 100, models.TxIncome, "Groceries")
	add(parent, 40, models.TxExpense, "Housing")

	status, err := env.svc.BudgetStatus(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "Groceries", status[0].Category)
	assert.InDelta(t, 200, status[0].Limit, 0.001)
	assert.InDelta(t, 50.5, status[0].Spent, 0.001)
	assert.Equal(t, models.PeriodMonthly, status[0].Period)

	// 覆盖而不是新增
	_, err = env.svc.UpsertBudget(ctx, parent.ID, BudgetInput{Category: "Groceries", Amount: 300, Period: models.PeriodWeekly})
	require.NoError(t, err)
	status, err = env.svc.BudgetStatus(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.InDelta(t, 300, status[0].Limit, 0.001)
	assert.Equal(t, models.PeriodWeekly, status[0].Period)
}

func TestUpsertBudget_Rules(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, _, child := env.family(t)

	_, err := env.svc.UpsertBudget(ctx, child.ID, BudgetInput{Category: "Groceries", Amount: 10})
	assertKind(t, err, apperr.KindAuthorization, "Children cannot manage budgets")

	_, err = env.svc.UpsertBudget(ctx, admin.ID, BudgetInput{Category: "Groceries", Amount: 0})
	assertKind(t, err, apperr.KindValidation, "")
	_, err = env.svc.UpsertBudget(ctx, admin.ID, BudgetInput{Category: "Groceries", Amount: 10, Period: "hourly"})
	assertKind(t, err, apperr.KindValidation, "")
	assert.Empty(t, env.rec.names(fam.ID))

	b, err := env.svc.UpsertBudget(ctx, admin.ID, BudgetInput{Category: "Groceries", Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.EventUpdateBudgets, realtime.EventActivity}, env.rec.names(fam.ID))

	require.NoError(t, env.svc.DeleteBudget(ctx, admin.ID, b.ID))
	err = env.svc.DeleteBudget(ctx, admin.ID, b.ID)
	assertKind(t, err, apperr.KindNotFound, "Budget not found")
}

func TestUpsertBudget_CreatesCategoryForNewName(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, _ := env.family(t)

	b, err := env.svc.UpsertBudget(ctx, admin.ID, BudgetInput{Category: "Vacation", Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, "Vacation", b.Category)
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, "vacation"))
	assert.Equal(t, []string{realtime.EventUpdateBudgets, realtime.EventUpdateCategories, realtime.EventActivity}, env.rec.names(fam.ID))

	// 不同大小写的流水落到同一个类别上
	tx, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 120, Description: "flights", Type: models.TxExpense, Category: "vacation"})
	require.NoError(t, err)
	assert.Equal(t, "Vacation", tx.Category)
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, "VACATION"))

	status, err := env.svc.BudgetStatus(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "Vacation", status[0].Category)
	assert.InDelta(t, 120, status[0].Spent, 0.001)
}

func TestGoals_Clamp(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, _, child := env.family(t)

	_, err := env.svc.CreateGoal(ctx, child.ID, GoalInput{Name: "Bike", TargetAmount: 100})
	assertKind(t, err, apperr.KindAuthorization, "Children cannot create goals")

	g, err := env.svc.CreateGoal(ctx, admin.ID, GoalInput{Name: "Bike", TargetAmount: 100, CurrentAmount: 500})
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.CurrentAmount)

	g, err = env.svc.AdjustGoal(ctx, child.ID, g.ID, GoalSubtract, 30)
	require.NoError(t, err)
	assert.Equal(t, 70.0, g.CurrentAmount)

	g, err = env.svc.AdjustGoal(ctx, child.ID, g.ID, GoalAdd, 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.CurrentAmount)

	g, err = env.svc.AdjustGoal(ctx, child.ID, g.ID, GoalSubtract, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.CurrentAmount)

	_, err = env.svc.AdjustGoal(ctx, child.ID, g.ID, GoalAdjust("multiply"), 1)
	assertKind(t, err, apperr.KindValidation, "Action must be 'add' or 'subtract'")
	_, err = env.svc.AdjustGoal(ctx, child.ID, 9999, GoalAdd, 1)
	assertKind(t, err, apperr.KindNotFound, "Goal not found")

	goals, err := env.svc.ListGoals(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 0.0, goals[0].CurrentAmount)
	assert.Contains(t, env.rec.names(fam.ID), realtime.EventUpdateGoals)
}

func TestAdjustGoal_OtherFamilyNotFound(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, admin, _, _ := env.family(t)

	g, err := env.svc.CreateGoal(ctx, admin.ID, GoalInput{Name: "Roof", TargetAmount: 1000, CurrentAmount: 250})
	require.NoError(t, err)

	outsider := env.register(t, "Zed", "zed@example.com")
	fam2, err := env.svc.CreateFamily(ctx, outsider.ID, "Second")
	require.NoError(t, err)
	env.rec.reset()

	_, err = env.svc.AdjustGoal(ctx, outsider.ID, g.ID, GoalAdd, 100)
	assertKind(t, err, apperr.KindNotFound, "Goal not found")
	_, err = env.svc.AdjustGoal(ctx, outsider.ID, g.ID, GoalSubtract, 100)
	assertKind(t, err, apperr.KindNotFound, "Goal not found")
	assert.Empty(t, env.rec.names(fam2.ID))

	goals, err := env.svc.ListGoals(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 250.0, goals[0].CurrentAmount)
}

func TestResolveCategory_CaseInsensitive(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, parent, _ := env.family(t)

	for _, label := range []string{"Groceries", "groceries", "GROCERIES", "  gRoCeRiEs "} {
		tx, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 1, Description: "x", Type: models.TxExpense, Category: label})
		require.NoError(t, err)
		assert.Equal(t, "Groceries", tx.Category, label)
	}
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, "groceries"))
	assert.NotContains(t, env.rec.names(fam.ID), realtime.EventUpdateCategories)
}

func TestResolveCategory_CreatesForParentsRedirectsChildren(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, parent, child := env.family(t)

	tx, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 5, Description: "x", Type: models.TxIncome, Category: "Pets"})
	require.NoError(t, err)
	assert.Equal(t, "Pets", tx.Category)
	assert.Contains(t, env.rec.names(fam.ID), realtime.EventUpdateCategories)

	var pets models.Category
	require.NoError(t, env.store.DB().Where("family_id = ? AND name = ?", fam.ID, "Pets").First(&pets).Error)
	assert.Equal(t, models.TxIncome, pets.Type)
	assert.Equal(t, models.ColorIncome, pets.Color)
	assert.False(t, pets.IsDefault)

	tx, err = env.svc.CreateTransaction(ctx, child.ID, TransactionInput{Amount: 5, Description: "x", Type: models.TxExpense, Category: "Candy"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOthers, tx.Category)
	assert.Zero(t, env.countCategories(t, fam.ID, "Candy"))

	tx, err = env.svc.CreateTransaction(ctx, child.ID, TransactionInput{Amount: 5, Description: "x", Type: models.TxExpense, Category: "pets"})
	require.NoError(t, err)
	assert.Equal(t, "Pets", tx.Category)

	tx, err = env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 5, Description: "x", Type: models.TxExpense})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryGeneral, tx.Category)
}

func TestResolveCategory_OthersCreatedOnDemand(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, _, child := env.family(t)

	require.NoError(t, env.store.DB().Where("family_id = ? AND name_key = ?", fam.ID, "others").Delete(&models.Category{}).Error)

	tx, err := env.svc.CreateTransaction(ctx, child.ID, TransactionInput{Amount: 5, Description: "x", Type: models.TxExpense, Category: "Candy"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOthers, tx.Category)
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, models.CategoryOthers))
}

func TestResolveCategory_ConcurrentCreatesOneRow(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, _ := env.family(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		u := admin
		if i%2 == 0 {
			u = parent
		}
		label := "Books"
		if i%3 == 0 {
			label = "BOOKS"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateTransaction(ctx, u.ID, TransactionInput{Amount: 1, Description: "x", Type: models.TxExpense, Category: label})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), env.countCategories(t, fam.ID, "books"))

	var names []string
	require.NoError(t, env.store.DB().Model(&models.Transaction{}).Where("family_id = ?", fam.ID).Distinct().Pluck("category", &names).Error)
	assert.Len(t, names, 1)
}

func TestResolveCategory_TruncatesLongLabels(t *testing.T) {
	env := setupService(t)
	fam, _, _, _ := env.family(t)

	long := ""
	for i := 0; i < 120; i++ {
		long += "é"
	}
	var name string
	err := env.store.RunInTransaction(context.Background(), func(tx *gorm.DB) error {
		var err error
		name, _, err = ResolveCategory(tx, fam.ID, models.RoleParent, long, models.TxExpense)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, maxCategoryLen, len([]rune(name)))
}

func TestCreateTransaction_ValidationEmitsNothing(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, parent, _ := env.family(t)

	bad := []TransactionInput{
		{Amount: 0, Description: "x", Type: models.TxExpense},
		{Amount: models.MaxAmount + 1, Description: "x", Type: models.TxExpense},
		{Amount: 1, Description: " ", Type: models.TxExpense},
		{Amount: 1, Description: "x", Type: "gift"},
	}
	for i, in := range bad {
		_, err := env.svc.CreateTransaction(ctx, parent.ID, in)
		assertKind(t, err, apperr.KindValidation, "")
		assert.Empty(t, env.rec.names(fam.ID), "case %d", i)
	}
	assert.Empty(t, env.journal.History(fam.ID))
}

func TestTransactions_ListAndDelete(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, child := env.family(t)

	first, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 12, Description: "bread", Type: models.TxExpense, Category: "Groceries"})
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.EventUpdateTransactions, realtime.EventUpdateBudgets, realtime.EventActivity}, env.rec.names(fam.ID))
	_, err = env.svc.CreateTransaction(ctx, child.ID, TransactionInput{Amount: 3, Description: "gum", Type: models.TxExpense, Category: "Groceries"})
	require.NoError(t, err)

	list, err := env.svc.ListTransactions(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gum", list[0].Description)
	assert.Equal(t, "Cleo", list[0].FirstName)
	assert.Equal(t, models.RoleChild, list[0].Role)

	outsider := env.register(t, "Out", "out@example.com")
	_, err = env.svc.CreateFamily(ctx, outsider.ID, "Other")
	require.NoError(t, err)
	err = env.svc.DeleteTransaction(ctx, outsider.ID, first.ID)
	assertKind(t, err, apperr.KindNotFound, "Transaction not found")

	require.NoError(t, env.svc.DeleteTransaction(ctx, child.ID, first.ID))
	list, err = env.svc.ListTransactions(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCategories_CRUD(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, child := env.family(t)

	_, err := env.svc.CreateCategory(ctx, child.ID, CategoryInput{Name: "Toys"})
	assertKind(t, err, apperr.KindAuthorization, "Children cannot create categories")

	_, err = env.svc.CreateCategory(ctx, parent.ID, CategoryInput{Name: "groceries"})
	assertKind(t, err, apperr.KindConflict, "Category already exists")

	toys, err := env.svc.CreateCategory(ctx, parent.ID, CategoryInput{Name: "Toys"})
	require.NoError(t, err)
	assert.Equal(t, models.ColorExpense, toys.Color)

	_, err = env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 9, Description: "lego", Type: models.TxExpense, Category: "toys"})
	require.NoError(t, err)
	_, err = env.svc.UpsertBudget(ctx, parent.ID, BudgetInput{Category: "Toys", Amount: 50})
	require.NoError(t, err)

	// 改名级联
	renamed, err := env.svc.UpdateCategory(ctx, admin.ID, toys.ID, CategoryInput{Name: "Games", Type: models.TxIncome})
	require.NoError(t, err)
	assert.Equal(t, "Games", renamed.Name)
	status, err := env.svc.BudgetStatus(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "Games", status[0].Category)
	list, err := env.svc.ListTransactions(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Games", list[0].Category)
	assert.Equal(t, models.TxIncome, list[0].Type)

	_, err = env.svc.UpdateCategory(ctx, admin.ID, toys.ID, CategoryInput{Name: "Housing"})
	assertKind(t, err, apperr.KindConflict, "Category name already exists")

	// 删除后改挂 Others
	require.NoError(t, env.svc.DeleteCategory(ctx, admin.ID, toys.ID))
	list, err = env.svc.ListTransactions(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOthers, list[0].Category)
	status, err = env.svc.BudgetStatus(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, models.CategoryOthers, status[0].Category)

	var others models.Category
	require.NoError(t, env.store.DB().Where("family_id = ? AND name_key = ?", fam.ID, "others").First(&others).Error)
	err = env.svc.DeleteCategory(ctx, admin.ID, others.ID)
	assertKind(t, err, apperr.KindValidation, "The Others category cannot be deleted")
	_, err = env.svc.UpdateCategory(ctx, admin.ID, others.ID, CategoryInput{Name: "Misc"})
	assertKind(t, err, apperr.KindValidation, "The Others category cannot be renamed")
}

func TestProfile_UpdateAndPassword(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, parent, _ := env.family(t)

	_, err := env.svc.UpdateProfile(ctx, parent.ID, ProfileInput{FirstName: "P", LastName: "Q", Email: "ADA@example.com"})
	assertKind(t, err, apperr.KindConflict, "Email already in use")

	u, err := env.svc.UpdateProfile(ctx, parent.ID, ProfileInput{FirstName: "Paula", LastName: "Q", Email: "Paula@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "paula@example.com", u.Email)
	assert.Contains(t, env.rec.names(fam.ID), realtime.EventUpdateMembers)

	err = env.svc.ChangePassword(ctx, admin.ID, "nope", "newsecret")
	assertKind(t, err, apperr.KindValidation, "Current password is incorrect")
	require.NoError(t, env.svc.ChangePassword(ctx, admin.ID, "secret123", "newsecret"))

	_, err = env.svc.Authenticate(ctx, "ada@example.com", "secret123")
	assertKind(t, err, apperr.KindAuth, "Invalid credentials")
	_, err = env.svc.Authenticate(ctx, " ADA@example.com ", "newsecret")
	require.NoError(t, err)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := setupService(t)
	env.register(t, "Ada", "ada@example.com")

	_, err := env.svc.Register(context.Background(), RegisterInput{FirstName: "A", LastName: "B", Email: "Ada@Example.com", Password: "secret123"})
	assertKind(t, err, apperr.KindConflict, "Email already exists")

	_, err = env.svc.Register(context.Background(), RegisterInput{FirstName: "A", LastName: "B", Email: "not-an-email", Password: "secret123"})
	assertKind(t, err, apperr.KindValidation, "Invalid email format")
}

func TestActivity_JournalIsFamilyScoped(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, _, parent, _ := env.family(t)

	other := env.register(t, "Zed", "zed@example.com")
	fam2, err := env.svc.CreateFamily(ctx, other.ID, "Second")
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		_, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 1, Description: fmt.Sprintf("t%d", i), Type: models.TxExpense, Category: "Groceries"})
		require.NoError(t, err)
	}

	id, events, err := env.svc.Activity(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, fam.ID, id)
	assert.Len(t, events, journal.DefaultSize)
	for _, ev := range events {
		assert.Equal(t, fam.ID, ev.FamilyID)
	}

	_, events, err = env.svc.Activity(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fam2.ID, events[0].FamilyID)
}

func TestActivity_WithoutEmitter(t *testing.T) {
	store, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := New(Deps{Store: store})
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{FirstName: "Ada", LastName: "Test", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	fam, err := svc.CreateFamily(ctx, u.ID, "Quiet")
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, u.ID, TransactionInput{Amount: 5, Description: "tea", Type: models.TxExpense, Category: "Groceries"})
	require.NoError(t, err)

	id, events, err := svc.Activity(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, fam.ID, id)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	require.NoError(t, svc.DeleteFamily(ctx, u.ID, "secret123"))
}

func TestExportTransactions(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, _, parent, child := env.family(t)

	_, err := env.svc.CreateTransaction(ctx, parent.ID, TransactionInput{Amount: 1000, Description: "salary", Type: models.TxIncome, Category: "Salary"})
	require.NoError(t, err)
	_, err = env.svc.CreateTransaction(ctx, child.ID, TransactionInput{Amount: 7.5, Description: "snack", Type: models.TxExpense, Category: "Groceries"})
	require.NoError(t, err)

	buf, err := env.svc.ExportTransactions(ctx, child.ID, ExportRange{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Description", rows[0][6])
	assert.Equal(t, "snack", rows[1][6])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "1000", rows[3][5])
	assert.Equal(t, "7.5", rows[3][7])
}

func TestInviteMember(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	fam, admin, _, child := env.family(t)

	err := env.svc.InviteMember(ctx, child.ID, "friend@example.com")
	assertKind(t, err, apperr.KindAuthorization, "")

	require.NoError(t, env.svc.InviteMember(ctx, admin.ID, "Friend@Example.com"))
	require.Len(t, env.mailer.sent, 1)
	sent := env.mailer.sent[0]
	assert.Equal(t, "friend@example.com", sent.to)
	assert.Equal(t, fam.InviteCode, sent.code)
	assert.Equal(t, "http://localhost:8080/?invite="+fam.InviteCode, sent.url)

	env.mailer.err = errors.New("smtp down")
	err = env.svc.InviteMember(ctx, admin.ID, "friend@example.com")
	assertKind(t, err, apperr.KindStore, "")

	env.mailer.enabled = false
	err = env.svc.InviteMember(ctx, admin.ID, "friend@example.com")
	assertKind(t, err, apperr.KindValidation, "Email invitations are not enabled")
}
