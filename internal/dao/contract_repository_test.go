package dao

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/model"
	"github.com/haierkeys/contract-version-service/pkg/writequeue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDao(t *testing.T) *Dao {
	t.Helper()

	cfg := DatabaseConfig{
		Type:         "sqlite",
		Path:         filepath.Join(t.TempDir(), "contracts.sqlite3"),
		AutoMigrate:  true,
		MaxOpenConns: 4,
	}
	db, err := NewDBEngineWithConfig(cfg, nil)
	require.NoError(t, err)

	wq := writequeue.New(nil, nil)
	d := New(db, context.Background(), WithConfig(&cfg), WithWriteQueueManager(wq))
	require.NoError(t, d.Migrate())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wq.Shutdown(ctx)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}

func seedMSA(t *testing.T, store domain.ContractStore) *domain.Contract {
	t.Helper()
	c, err := store.StoreNewContract(context.Background(), &domain.NewContract{
		Filename:    "MSA.pdf",
		ContentHash: "hash-v1",
		Clauses: []domain.ExtractedClause{
			{Identifier: "A", Text: "clause a", Metadata: map[string]any{"risk": "low"}},
			{Identifier: "B", Text: "clause b"},
			{Identifier: "C", Text: "clause c"},
		},
	})
	require.NoError(t, err)
	return c
}

// v2: B 修改, D 新增, C 删除
func commitV2(id int64) *domain.VersionCommit {
	return &domain.VersionCommit{
		ContractID:      id,
		ExpectedVersion: 1,
		NewVersion:      2,
		ContentHash:     "hash-v2",
		Filename:        "MSA-rev.pdf",
		Rows: []*domain.Clause{
			{ContractID: id, Identifier: "B", Label: "B", Content: "clause b revised", ClauseVersion: 2, Position: 1},
			{ContractID: id, Identifier: "D", Label: "D", Content: "clause d", ClauseVersion: 2, Position: 2},
			{ContractID: id, Identifier: "C", Content: "clause c", ClauseVersion: 2, Position: 2, IsDeleted: true},
		},
		Metadata: &domain.VersionMetadata{
			ContractID:     id,
			Version:        2,
			ChangedClauses: []string{"D", "B", "C"},
			ModifiedCount:  1,
			AddedCount:     1,
			DeletedCount:   1,
			UnchangedCount: 1,
		},
	}
}

func contents(cs []*domain.Clause) map[string]string {
	out := map[string]string{}
	for _, c := range cs {
		out[c.Identifier] = c.Content
	}
	return out
}

func countRows(t *testing.T, d *Dao, m any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.Db.Model(m).Where(where, args...).Count(&n).Error)
	return n
}

func TestStoreNewContract(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()

	c := seedMSA(t, store)
	assert.Equal(t, int64(1), c.CurrentVersion)
	assert.Equal(t, "MSA.pdf", c.Filename)
	assert.False(t, c.CreatedAt.IsZero())

	clauses, err := store.GetClauses(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, identifiersOf(clauses))
	for _, cl := range clauses {
		assert.Equal(t, int64(1), cl.ClauseVersion)
	}
	assert.Equal(t, "low", clauses[0].Metadata["risk"])

	history, err := store.GetVersionHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].Version)
	assert.Equal(t, []string{"A", "B", "C"}, history[0].ChangedClauses)
	assert.Equal(t, 3, history[0].AddedCount)

	byHash, err := store.GetContractByHash(ctx, "hash-v1")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, c.ID, byHash.ID)

	none, err := store.GetContractByHash(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStoreNewContract_Rejections(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	seedMSA(t, store)

	_, err := store.StoreNewContract(ctx, &domain.NewContract{Filename: "copy.pdf", ContentHash: "hash-v1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateContract)

	_, err = store.StoreNewContract(ctx, &domain.NewContract{
		Filename:    "dup.pdf",
		ContentHash: "other",
		Clauses:     []domain.ExtractedClause{{Identifier: "X"}, {Identifier: "X"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClauseSet)

	_, err = store.StoreNewContract(ctx, &domain.NewContract{
		Filename:    "blank.pdf",
		ContentHash: "other",
		Clauses:     []domain.ExtractedClause{{Identifier: ""}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClauseSet)

	assert.Equal(t, int64(1), countRows(t, d, &model.Contract{}, "1 = 1"))
}

func TestStoreContractVersion(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	updated, err := store.StoreContractVersion(ctx, commitV2(c.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.CurrentVersion)
	assert.Equal(t, "hash-v2", updated.ContentHash)
	assert.Equal(t, "MSA-rev.pdf", updated.Filename)
	assert.Equal(t, c.CreatedAt.Unix(), updated.CreatedAt.Unix())

	// 合同始终只有一行
	assert.Equal(t, int64(1), countRows(t, d, &model.Contract{}, "id = ?", c.ID))
	// A 未改写
	assert.Equal(t, int64(1), countRows(t, d, &model.Clause{}, "contract_id = ? AND clause_identifier = ?", c.ID, "A"))

	v1, err := store.GetClauses(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "clause a", "B": "clause b", "C": "clause c"}, contents(v1))

	v2, err := store.GetClauses(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "clause a", "B": "clause b revised", "D": "clause d"}, contents(v2))

	history, err := store.GetVersionHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"B", "C", "D"}, history[1].ChangedClauses)
	assert.Equal(t, 1, history[1].DeletedCount)

	assert.Equal(t, int64(6), countRows(t, d, &model.Clause{}, "contract_id = ?", c.ID))
	var markers []*model.Clause
	require.NoError(t, d.Db.Where("contract_id = ? AND is_deleted = ?", c.ID, true).Find(&markers).Error)
	require.Len(t, markers, 1)
	assert.Equal(t, "C", markers[0].Identifier)
	assert.NotNil(t, markers[0].DeletedAt)

	last, err := store.LastVersion(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
}

func TestStoreContractVersion_SequentialViolation(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	// 跳号
	skip := commitV2(c.ID)
	skip.NewVersion = 3
	_, err := store.StoreContractVersion(ctx, skip)
	var seq *domain.SequentialVersionViolation
	require.ErrorAs(t, err, &seq)
	assert.Equal(t, int64(2), seq.Expected)
	assert.Equal(t, int64(3), seq.Actual)
	assert.False(t, domain.IsRetryable(err))

	_, err = store.StoreContractVersion(ctx, commitV2(c.ID))
	require.NoError(t, err)

	// 基于过期的 current_version 再次提交 v2
	_, err = store.StoreContractVersion(ctx, commitV2(c.ID))
	require.ErrorAs(t, err, &seq)
	assert.Equal(t, c.ID, seq.ContractID)
	assert.Equal(t, int64(3), seq.Expected)
	assert.Equal(t, int64(2), seq.Actual)

	assert.Equal(t, int64(2), countRows(t, d, &model.VersionMetadata{}, "contract_id = ?", c.ID))
}

func TestStoreContractVersion_ReferentialViolation(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	foreign := commitV2(c.ID)
	foreign.Rows[0].ContractID = c.ID + 100
	_, err := store.StoreContractVersion(ctx, foreign)
	var ref *domain.ReferentialIntegrityViolation
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "B", ref.Identifier)

	ghost := commitV2(c.ID)
	ghost.Rows = append(ghost.Rows, &domain.Clause{ContractID: c.ID, Identifier: "Z", ClauseVersion: 2, IsDeleted: true})
	_, err = store.StoreContractVersion(ctx, ghost)
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "Z", ref.Identifier)

	_, err = store.StoreContractVersion(ctx, &domain.VersionCommit{
		ContractID: 999, ExpectedVersion: 1, NewVersion: 2,
		Metadata: &domain.VersionMetadata{ContractID: 999, Version: 2},
	})
	assert.ErrorIs(t, err, domain.ErrContractNotFound)

	// 没有任何写入
	assert.Equal(t, int64(0), countRows(t, d, &model.Clause{}, "clause_version = ?", 2))
	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CurrentVersion)
}

// 在写入版本元数据时注入故障，事务必须完整回滚
func TestStoreContractVersion_AtomicUnderInjectedFailure(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	historyBefore, err := store.GetVersionHistory(ctx, c.ID)
	require.NoError(t, err)
	clausesBefore, err := store.GetClauses(ctx, c.ID, 0)
	require.NoError(t, err)

	injected := errors.New("injected crash")
	require.NoError(t, d.Db.Callback().Create().Before("gorm:create").Register("test:crash_metadata", func(tx *gorm.DB) {
		if tx.Statement.Table == model.TableNameVersionMetadata {
			_ = tx.AddError(injected)
		}
	}))

	_, err = store.StoreContractVersion(ctx, commitV2(c.ID))
	require.Error(t, err)
	var txErr *domain.StorageTransactionError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, domain.IsRetryable(err))
	assert.ErrorIs(t, err, injected)

	require.NoError(t, d.Db.Callback().Create().Remove("test:crash_metadata"))

	historyAfter, err := store.GetVersionHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, historyBefore, historyAfter)

	clausesAfter, err := store.GetClauses(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, clausesBefore, clausesAfter)

	assert.Equal(t, int64(0), countRows(t, d, &model.Clause{}, "contract_id = ? AND clause_version = ?", c.ID, 2))
	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CurrentVersion)

	// 故障解除后重试成功
	_, err = store.StoreContractVersion(ctx, commitV2(c.ID))
	assert.NoError(t, err)
}

// 两个并发提交基于同一版本，只有一个成功
func TestStoreContractVersion_ConcurrentSameVersion(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	c := seedMSA(t, store)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.StoreContractVersion(context.Background(), commitV2(c.ID))
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		var seq *domain.SequentialVersionViolation
		switch {
		case err == nil:
			ok++
		case errors.As(err, &seq):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, rejected)
}

func TestGetClauses_Errors(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	_, err := store.GetClauses(ctx, c.ID, 2)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
	_, err = store.GetClauses(ctx, c.ID, -1)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
	_, err = store.GetClauses(ctx, 12345, 1)
	assert.ErrorIs(t, err, domain.ErrContractNotFound)
	_, err = store.GetVersionHistory(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

// 删除后重新出现的条款沿用原标识符
func TestStoreContractVersion_ReappearingClause(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()
	c := seedMSA(t, store)

	_, err := store.StoreContractVersion(ctx, commitV2(c.ID))
	require.NoError(t, err)

	_, err = store.StoreContractVersion(ctx, &domain.VersionCommit{
		ContractID: c.ID, ExpectedVersion: 2, NewVersion: 3,
		Rows: []*domain.Clause{
			{ContractID: c.ID, Identifier: "C", Label: "C", Content: "clause c returns", ClauseVersion: 3, Position: 3},
		},
		Metadata: &domain.VersionMetadata{ContractID: c.ID, Version: 3, ChangedClauses: []string{"C"}, AddedCount: 1},
	})
	require.NoError(t, err)

	v3, err := store.GetClauses(ctx, c.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "clause c returns", contents(v3)["C"])

	v2, err := store.GetClauses(ctx, c.ID, 2)
	require.NoError(t, err)
	_, present := contents(v2)["C"]
	assert.False(t, present)
}

func TestGetContractByVersionHash(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()

	c := seedMSA(t, store)
	_, err := store.StoreContractVersion(ctx, commitV2(c.ID))
	require.NoError(t, err)

	current, err := store.GetContractByHash(ctx, "hash-v1")
	require.NoError(t, err)
	assert.Nil(t, current, "contract row carries the newest hash only")

	for _, hash := range []string{"hash-v1", "hash-v2"} {
		got, err := store.GetContractByVersionHash(ctx, hash)
		require.NoError(t, err)
		require.NotNil(t, got, hash)
		assert.Equal(t, c.ID, got.ID)
		assert.EqualValues(t, 2, got.CurrentVersion)
	}

	got, err := store.GetContractByVersionHash(ctx, "hash-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListContracts(t *testing.T) {
	d := newTestDao(t)
	store := NewContractRepository(d)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		_, err := store.StoreNewContract(ctx, &domain.NewContract{Filename: name, ContentHash: "hash-" + name})
		require.NoError(t, err)
	}

	all, err := store.ListContracts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.pdf", all[0].Filename)

	page, total, err := store.ListContractsPage(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	page, _, err = store.ListContractsPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func identifiersOf(cs []*domain.Clause) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Identifier)
	}
	return out
}
