package opname

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/appctx"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/batch"
	"farmastok/internal/domain/catalog"
)

// fakeTxManager runs the callback directly; the repos are in-memory.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	tasks      map[id.ID]*Task
	expiries   map[id.ID]time.Time
	seq        int
	open       []OpenTask
	lastFilter Filter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:    make(map[id.ID]*Task),
		expiries: make(map[id.ID]time.Time),
	}
}

// setExpiry records a batch's expiry so listings can order tasks the way
// the real repository does.
func (r *fakeRepo) setExpiry(batchID id.ID, expiry time.Time) {
	r.expiries[batchID] = expiry
}

func (r *fakeRepo) Create(ctx context.Context, tasks []Task) error {
	for i := range tasks {
		t := tasks[i]
		r.tasks[t.ID] = &t
	}
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, taskID id.ID) (*Task, error) {
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, apperror.NewNotFound("stock-count task", taskID.String())
	}
	copied := *t
	return &copied, nil
}

func (r *fakeRepo) Update(ctx context.Context, task *Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return apperror.NewNotFound("stock-count task", task.ID.String())
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter Filter) ([]Task, int, error) {
	r.lastFilter = filter
	var out []Task
	for _, t := range r.tasks {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ProductCode != "" && t.ProductCode != filter.ProductCode {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListScheduledForUpdate(ctx context.Context, userID id.ID, productCode string) ([]Task, error) {
	var out []Task
	for _, t := range r.tasks {
		if t.UserID == userID && t.ProductCode == productCode && t.Status == StatusScheduled && t.BatchID != nil {
			out = append(out, *t)
		}
	}
	r.sortByConsumptionOrder(out)
	return out, nil
}

func (r *fakeRepo) ListPendingForUpdate(ctx context.Context, productCode string) ([]Task, error) {
	var batchTasks, residuals []Task
	for _, t := range r.tasks {
		if t.ProductCode != productCode || t.Status != StatusPending {
			continue
		}
		if t.IsResidual() {
			residuals = append(residuals, *t)
		} else {
			batchTasks = append(batchTasks, *t)
		}
	}
	r.sortByConsumptionOrder(batchTasks)
	return append(batchTasks, residuals...), nil
}

func (r *fakeRepo) ListOpenByCategories(ctx context.Context, categoryCodes []string) ([]OpenTask, error) {
	return r.open, nil
}

func (r *fakeRepo) ListOverdueForUpdate(ctx context.Context, asOf time.Time) ([]Task, error) {
	var out []Task
	for _, t := range r.tasks {
		if t.Status == StatusScheduled && t.ScheduledDate != nil && t.ScheduledDate.Before(asOf) {
			out = append(out, *t)
		}
	}
	return out, nil
}

// sortByConsumptionOrder mirrors the repository contract: batch tasks come
// back ordered by batch expiry ascending. Seeds assign each batch a distinct
// expiry, so the order is deterministic.
func (r *fakeRepo) sortByConsumptionOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return r.expiries[*tasks[i].BatchID].Before(r.expiries[*tasks[j].BatchID])
	})
}

type fakeBatchRepo struct {
	batches  []batch.Batch
	setCalls map[id.ID]int
}

func newFakeBatchRepo(batches ...batch.Batch) *fakeBatchRepo {
	return &fakeBatchRepo{batches: batches, setCalls: make(map[id.ID]int)}
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	for i := range r.batches {
		if r.batches[i].ID == batchID {
			b := r.batches[i]
			return &b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) ListByProduct(ctx context.Context, productCode string) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.batches {
		if b.ProductCode == productCode {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) ListByProductForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	return r.ListByProduct(ctx, productCode)
}

func (r *fakeBatchRepo) ListAvailableForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	all, _ := r.ListByProduct(ctx, productCode)
	var out []batch.Batch
	for _, b := range all {
		if b.StockQuantity > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) Search(ctx context.Context, filter batch.SearchFilter) ([]batch.Batch, int, error) {
	return r.batches, len(r.batches), nil
}

func (r *fakeBatchRepo) SetStock(ctx context.Context, batchID id.ID, quantity int) error {
	r.setCalls[batchID] = quantity
	return nil
}

func (r *fakeBatchRepo) DecrementStock(ctx context.Context, batchID id.ID, by int) error {
	return nil
}

func (r *fakeBatchRepo) UpdateExpiry(ctx context.Context, batchID id.ID, expiry time.Time) error {
	return nil
}

func (r *fakeBatchRepo) TotalStockByProduct(ctx context.Context) (map[string]batch.StockTotal, error) {
	return nil, nil
}

type fakeCatalogRepo struct {
	products   map[string][]catalog.Product
	categories map[string]catalog.Category
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products:   make(map[string][]catalog.Product),
		categories: make(map[string]catalog.Category),
	}
}

func (r *fakeCatalogRepo) GetProduct(ctx context.Context, code string) (*catalog.Product, error) {
	for _, list := range r.products {
		for _, p := range list {
			if p.Code == code {
				return &p, nil
			}
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeCatalogRepo) GetProductByName(ctx context.Context, name string) (*catalog.Product, error) {
	return nil, apperror.NewNotFound("product", name)
}

func (r *fakeCatalogRepo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, list := range r.products {
		out = append(out, list...)
	}
	return out, nil
}

func (r *fakeCatalogRepo) ListProductsByCategory(ctx context.Context, categoryCode string) ([]catalog.Product, error) {
	return r.products[categoryCode], nil
}

func (r *fakeCatalogRepo) GetCategory(ctx context.Context, code string) (*catalog.Category, error) {
	c, ok := r.categories[code]
	if !ok {
		return nil, apperror.NewNotFound("category", code)
	}
	return &c, nil
}

func staffCtx(uid id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: uid.String(),
		Name:   "staff",
		Role:   appctx.RoleStaff,
	})
}

func adminCtx(uid id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: uid.String(),
		Name:   "admin",
		Role:   appctx.RoleAdmin,
	})
}

// seedScheduledTask creates a scheduled batch task. Batches expire in
// seeding order, so the first task seeded is the first consumed.
func seedScheduledTask(repo *fakeRepo, userID id.ID, productCode string, systemStock int) *Task {
	batchID := id.New()
	repo.seq++
	repo.setExpiry(batchID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, repo.seq))
	scheduled := time.Now().Add(24 * time.Hour)
	task := &Task{
		ID:            id.New(),
		UserID:        userID,
		ProductCode:   productCode,
		BatchID:       &batchID,
		Status:        StatusScheduled,
		ScheduledDate: &scheduled,
		SystemStock:   systemStock,
	}
	repo.tasks[task.ID] = task
	return task
}

func newTestService(repo *fakeRepo, batches *fakeBatchRepo, cat *fakeCatalogRepo) *Service {
	return NewService(repo, batches, cat, fakeTxManager{})
}

func TestCreateTasks(t *testing.T) {
	repo := newFakeRepo()
	cat := newFakeCatalogRepo()
	cat.categories["VITAMIN"] = catalog.Category{Code: "VITAMIN", Name: "Vitamins"}
	cat.products["VITAMIN"] = []catalog.Product{{Code: "PRD-001", Name: "Vitamin C"}}
	batches := newFakeBatchRepo(
		batch.Batch{ID: id.New(), BatchCode: "B1", ProductCode: "PRD-001", StockQuantity: 30},
		batch.Batch{ID: id.New(), BatchCode: "B2", ProductCode: "PRD-001", StockQuantity: 70},
	)
	svc := newTestService(repo, batches, cat)
	counter := id.New()

	created, err := svc.CreateTasks(context.Background(), CreateTasksInput{
		UserID:        counter,
		CategoryCodes: []string{"VITAMIN"},
		ScheduledDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, created, 2)
	for _, task := range created {
		assert.Equal(t, StatusScheduled, task.Status)
		assert.Equal(t, counter, task.UserID)
		assert.Equal(t, "PRD-001", task.ProductCode)
		require.NotNil(t, task.BatchID)
	}
	assert.Len(t, repo.tasks, 2)
}

func TestCreateTasks_CategoryHeldByAnotherCounter(t *testing.T) {
	repo := newFakeRepo()
	repo.open = []OpenTask{{TaskID: "t1", UserName: "sari", CategoryCode: "VITAMIN", CategoryName: "Vitamins", Status: StatusScheduled}}
	cat := newFakeCatalogRepo()
	cat.categories["VITAMIN"] = catalog.Category{Code: "VITAMIN", Name: "Vitamins"}
	svc := newTestService(repo, newFakeBatchRepo(), cat)

	_, err := svc.CreateTasks(context.Background(), CreateTasksInput{
		UserID:        id.New(),
		CategoryCodes: []string{"VITAMIN"},
		ScheduledDate: time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestCreateTasks_UnknownCategory(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.CreateTasks(context.Background(), CreateTasksInput{
		UserID:        id.New(),
		CategoryCodes: []string{"NOPE"},
		ScheduledDate: time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmitProductCount_Proportional(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	t1 := seedScheduledTask(repo, counter, "PRD-001", 70)
	t2 := seedScheduledTask(repo, counter, "PRD-001", 30)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	submitted, err := svc.SubmitProductCount(staffCtx(counter), "PRD-001", Counts{Physical: 50}, "monthly count")
	require.NoError(t, err)

	require.Len(t, submitted, 2)
	assert.Equal(t, 35, repo.tasks[t1.ID].PhysicalStock)
	assert.Equal(t, 15, repo.tasks[t2.ID].PhysicalStock)
	for _, task := range submitted {
		assert.Equal(t, StatusSubmitted, task.Status)
		assert.Equal(t, "monthly count", task.Notes)
	}
}

func TestSubmitProductCount_DistributesInExpiryOrder(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	// The smallest batch expires first; rounding overshoot lands on the
	// last batch in consumption order, not the smallest one.
	tFirst := seedScheduledTask(repo, counter, "PRD-001", 10)
	tMid := seedScheduledTask(repo, counter, "PRD-001", 15)
	tLast := seedScheduledTask(repo, counter, "PRD-001", 15)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitProductCount(staffCtx(counter), "PRD-001", Counts{Physical: 20}, "")
	require.NoError(t, err)

	assert.Equal(t, 5, repo.tasks[tFirst.ID].PhysicalStock)
	assert.Equal(t, 8, repo.tasks[tMid.ID].PhysicalStock)
	assert.Equal(t, 7, repo.tasks[tLast.ID].PhysicalStock)
}

func TestSubmitProductCount_SurplusCreatesResidual(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	seedScheduledTask(repo, counter, "PRD-001", 30)
	seedScheduledTask(repo, counter, "PRD-001", 10)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	// Two batches of zero recorded stock cannot absorb anything, so the
	// whole count lands in the residual row.
	for _, task := range repo.tasks {
		task.SystemStock = 0
	}

	submitted, err := svc.SubmitProductCount(staffCtx(counter), "PRD-001", Counts{Physical: 12}, "")
	require.NoError(t, err)

	require.Len(t, submitted, 3)
	residual := submitted[len(submitted)-1]
	assert.True(t, residual.IsResidual())
	assert.Equal(t, StatusSubmitted, residual.Status)
	assert.Equal(t, 12, residual.Residual)
	assert.Equal(t, 0, residual.SystemStock)
	assert.Equal(t, "unexplained stock difference", residual.Notes)
}

func TestSubmitProductCount_NoScheduledTasks(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitProductCount(staffCtx(id.New()), "PRD-404", Counts{Physical: 1}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmitProductCount_Unauthenticated(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitProductCount(context.Background(), "PRD-001", Counts{Physical: 1}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestSubmitTask_ForbiddenForOtherUser(t *testing.T) {
	repo := newFakeRepo()
	owner := id.New()
	task := seedScheduledTask(repo, owner, "PRD-001", 20)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(id.New()), task.ID, Counts{Physical: 18}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	got, err := svc.SubmitTask(staffCtx(owner), task.ID, Counts{Physical: 18}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	assert.Equal(t, 2, got.Difference())
}

func TestReview_AdjustsBatchStock(t *testing.T) {
	repo := newFakeRepo()
	batches := newFakeBatchRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 50)
	svc := newTestService(repo, batches, newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(counter), task.ID, Counts{Physical: 42}, "")
	require.NoError(t, err)

	reviewed, err := svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID, Notes: "checked", AdjustStock: true})
	require.NoError(t, err)

	assert.Equal(t, StatusAdjusted, reviewed.Status)
	assert.Equal(t, 42, batches.setCalls[*task.BatchID])
}

func TestReview_WithoutAdjustStockLeavesLedgerAlone(t *testing.T) {
	repo := newFakeRepo()
	batches := newFakeBatchRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 10)
	svc := newTestService(repo, batches, newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(counter), task.ID, Counts{Physical: 7}, "")
	require.NoError(t, err)

	reviewed, err := svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID})
	require.NoError(t, err)

	assert.Equal(t, StatusAdjusted, reviewed.Status)
	assert.Empty(t, batches.setCalls, "batch ledger must stay untouched unless the review asks for a stock adjustment")
}

func TestReview_ScheduledTask(t *testing.T) {
	repo := newFakeRepo()
	batches := newFakeBatchRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 10)
	svc := newTestService(repo, batches, newFakeCatalogRepo())

	// An admin can close out a task the counter never got to.
	reviewed, err := svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID, Notes: "closed without count"})
	require.NoError(t, err)

	assert.Equal(t, StatusAdjusted, reviewed.Status)
	assert.Equal(t, "closed without count", reviewed.Notes)
	assert.Empty(t, batches.setCalls)

	// Once finalized it cannot be reviewed again.
	_, err = svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestReview_RequiresAdmin(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.Review(staffCtx(id.New()), ReviewInput{TaskID: id.New()})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestReview_PendingEditMustBeDecided(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 50)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(counter), task.ID, Counts{Physical: 42}, "")
	require.NoError(t, err)
	_, err = svc.RequestEdit(staffCtx(counter), task.ID, "miscounted shelf B")
	require.NoError(t, err)

	// Finalizing without an explicit edit decision is refused.
	_, err = svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestReview_ApproveEditReopensTask(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 50)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(counter), task.ID, Counts{Physical: 42}, "")
	require.NoError(t, err)
	_, err = svc.RequestEdit(staffCtx(counter), task.ID, "miscounted")
	require.NoError(t, err)

	approve := true
	reviewed, err := svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID, ApproveEdit: &approve})
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, reviewed.Status)
	assert.False(t, reviewed.EditRequested)
	assert.Empty(t, reviewed.EditReason)
}

func TestReview_RejectEditFinalizes(t *testing.T) {
	repo := newFakeRepo()
	batches := newFakeBatchRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 50)
	svc := newTestService(repo, batches, newFakeCatalogRepo())

	_, err := svc.SubmitTask(staffCtx(counter), task.ID, Counts{Physical: 42}, "")
	require.NoError(t, err)
	_, err = svc.RequestEdit(staffCtx(counter), task.ID, "miscounted")
	require.NoError(t, err)

	reject := false
	reviewed, err := svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID, ApproveEdit: &reject, AdjustStock: true})
	require.NoError(t, err)

	assert.Equal(t, StatusAdjusted, reviewed.Status)
	assert.False(t, reviewed.EditRequested)
	assert.Equal(t, 42, batches.setCalls[*task.BatchID])

	// A finalized task cannot be reviewed again.
	_, err = svc.Review(adminCtx(id.New()), ReviewInput{TaskID: task.ID, ApproveEdit: &reject})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestDirectCountAndConfirm(t *testing.T) {
	repo := newFakeRepo()
	b1 := batch.Batch{ID: id.New(), BatchCode: "B1", ProductCode: "PRD-001", StockQuantity: 10}
	b2 := batch.Batch{ID: id.New(), BatchCode: "B2", ProductCode: "PRD-001", StockQuantity: 20}
	repo.setExpiry(b1.ID, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	repo.setExpiry(b2.ID, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	batches := newFakeBatchRepo(b1, b2)
	svc := newTestService(repo, batches, newFakeCatalogRepo())
	admin := adminCtx(id.New())

	created, err := svc.DirectCount(admin, "PRD-001", Counts{Physical: 25}, "spot check")
	require.NoError(t, err)

	require.Len(t, created, 2)
	assert.Equal(t, 10, created[0].PhysicalStock)
	assert.Equal(t, 15, created[1].PhysicalStock)
	for _, task := range created {
		assert.Equal(t, StatusPending, task.Status)
	}

	confirmed, err := svc.ConfirmDirect(admin, "PRD-001")
	require.NoError(t, err)

	require.Len(t, confirmed, 2)
	for _, task := range confirmed {
		assert.Equal(t, StatusAdjusted, task.Status)
	}
	// B1 expires first, so it fills to its recorded stock before B2
	// absorbs the rest.
	assert.Equal(t, 10, batches.setCalls[b1.ID])
	assert.Equal(t, 15, batches.setCalls[b2.ID])
}

func TestDirectCount_RequiresAdmin(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.DirectCount(staffCtx(id.New()), "PRD-001", Counts{Physical: 1}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestConfirmDirect_NothingPending(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeBatchRepo(), newFakeCatalogRepo())

	_, err := svc.ConfirmDirect(adminCtx(id.New()), "PRD-001")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSweepOverdue(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	task := seedScheduledTask(repo, counter, "PRD-001", 40)
	past := time.Now().Add(-48 * time.Hour)
	task.ScheduledDate = &past

	// A task scheduled in the future stays untouched.
	seedScheduledTask(repo, counter, "PRD-002", 10)

	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	swept, err := svc.SweepOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got := repo.tasks[task.ID]
	assert.Equal(t, StatusSubmitted, got.Status)
	assert.Equal(t, 0, got.PhysicalStock)
	assert.Equal(t, "missed count, auto-submitted", got.Notes)
}

func TestList_StaffRestrictedToOwnTasks(t *testing.T) {
	repo := newFakeRepo()
	counter := id.New()
	seedScheduledTask(repo, counter, "PRD-001", 40)
	seedScheduledTask(repo, id.New(), "PRD-001", 40)
	svc := newTestService(repo, newFakeBatchRepo(), newFakeCatalogRepo())

	tasks, total, err := svc.List(staffCtx(counter), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, counter, tasks[0].UserID)

	tasks, total, err = svc.List(adminCtx(id.New()), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, tasks, 2)
}

func TestCheckConflict(t *testing.T) {
	repo := newFakeRepo()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.open = []OpenTask{
		{TaskID: "t1", UserName: "sari", CategoryCode: "VITAMIN", CategoryName: "Vitamins", Status: StatusScheduled, ScheduledDate: &day},
	}
	cat := newFakeCatalogRepo()
	cat.categories["VITAMIN"] = catalog.Category{Code: "VITAMIN", Name: "Vitamins"}
	svc := newTestService(repo, newFakeBatchRepo(), cat)

	report, err := svc.CheckConflict(context.Background(), []string{"VITAMIN"})
	require.NoError(t, err)
	require.True(t, report.HasConflict)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, []string{"sari"}, report.Conflicts[0].Users)

	_, err = svc.CheckConflict(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))
}
