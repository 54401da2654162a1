package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockContractStore struct {
	domain.ContractStore
	contracts []*domain.Contract
	history   map[int64][]*domain.VersionMetadata
	last      map[int64]int64
	listErr   error
}

func (m *mockContractStore) GetContractByHash(ctx context.Context, hash string) (*domain.Contract, error) {
	for _, c := range m.contracts {
		if c.ContentHash == hash {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockContractStore) GetContractByVersionHash(ctx context.Context, hash string) (*domain.Contract, error) {
	for id, versions := range m.history {
		for _, v := range versions {
			if v.ContentHash == hash {
				return m.GetContract(ctx, id)
			}
		}
	}
	return nil, nil
}

func (m *mockContractStore) GetContract(ctx context.Context, id int64) (*domain.Contract, error) {
	for _, c := range m.contracts {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrContractNotFound
}

func (m *mockContractStore) ListContracts(ctx context.Context) ([]*domain.Contract, error) {
	return m.contracts, m.listErr
}

func (m *mockContractStore) GetVersionHistory(ctx context.Context, id int64) ([]*domain.VersionMetadata, error) {
	return m.history[id], nil
}

func (m *mockContractStore) LastVersion(ctx context.Context, id int64) (int64, error) {
	return m.last[id], nil
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("disk gone") }

func TestIdentityService_HashContent(t *testing.T) {
	svc := NewIdentityService(&mockContractStore{}, nil, nil)

	h1, err := svc.HashContent("a.pdf", []byte("same bytes"))
	require.NoError(t, err)
	h2, err := svc.HashContent("b.pdf", []byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	_, err = svc.HashContent("empty.pdf", nil)
	var hashErr *domain.HashComputationError
	require.ErrorAs(t, err, &hashErr)
	assert.Equal(t, "empty.pdf", hashErr.Filename)

	h3, n, err := svc.HashReader("a.pdf", bytes.NewReader([]byte("same bytes")))
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	assert.EqualValues(t, 10, n)

	_, _, err = svc.HashReader("broken.pdf", failingReader{})
	require.ErrorAs(t, err, &hashErr)
}

func TestIdentityService_FindPotentialMatches(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	store := &mockContractStore{contracts: []*domain.Contract{
		{ID: 1, Filename: "Contract-ABC.pdf", ContentHash: "h1", CreatedAt: t0},
		{ID: 2, Filename: "Lease.docx", ContentHash: "h2", CreatedAt: t0},
		{ID: 3, Filename: "contract_abc.PDF", ContentHash: "h3", CreatedAt: t0.Add(time.Hour)},
		{ID: 4, Filename: "Contract-ABC.pdf", ContentHash: "h4", CreatedAt: t0},
	}, history: map[int64][]*domain.VersionMetadata{
		2: {
			{ContractID: 2, Version: 1, ContentHash: "h2-v1"},
			{ContractID: 2, Version: 2, ContentHash: "h2"},
		},
	}}
	svc := NewIdentityService(store, nil, nil)

	tests := []struct {
		name     string
		hash     string
		filename string
		wantIDs  []int64
		wantHash bool
	}{
		{name: "hash match is authoritative", hash: "h2", filename: "Contract-ABC.pdf", wantIDs: []int64{2}, wantHash: true},
		{name: "earlier version hash", hash: "h2-v1", filename: "renamed-copy.docx", wantIDs: []int64{2}, wantHash: true},
		{name: "fuzzy filename candidates", hash: "nope", filename: "Contract-ABD.pdf", wantIDs: []int64{1, 4, 3}},
		{name: "no candidates", hash: "nope", filename: "Invoice-2024.xlsx", wantIDs: []int64{}},
		{name: "no filename", hash: "nope", filename: "", wantIDs: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FindPotentialMatches(ctx, tt.hash, tt.filename)
			require.NoError(t, err)
			require.NotNil(t, got)

			ids := make([]int64, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ContractID)
				assert.GreaterOrEqual(t, c.Score, DefaultFilenameThreshold)
			}
			assert.Equal(t, tt.wantIDs, ids)
			if tt.wantHash {
				assert.True(t, got[0].HashMatch)
				assert.Equal(t, 1.0, got[0].Score)
			}
		})
	}
}

func TestIdentityService_FindPotentialMatches_Threshold(t *testing.T) {
	store := &mockContractStore{contracts: []*domain.Contract{
		{ID: 1, Filename: "Contract-ABC.pdf", ContentHash: "h1"},
	}}

	strict := NewIdentityService(store, nil, &IdentityServiceConfig{FilenameThreshold: 0.99})
	got, err := strict.FindPotentialMatches(context.Background(), "x", "Contract-ABD.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)

	loose := NewIdentityService(store, nil, &IdentityServiceConfig{FilenameThreshold: 0.5})
	got, err = loose.FindPotentialMatches(context.Background(), "x", "Contract-ABD.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1-1.0/14, got[0].Score, 1e-9)
}

func TestIdentityService_FindPotentialMatches_StoreError(t *testing.T) {
	store := &mockContractStore{listErr: errors.New("boom")}
	svc := NewIdentityService(store, nil, nil)

	_, err := svc.FindPotentialMatches(context.Background(), "x", "a.pdf")
	assert.EqualError(t, err, "boom")
}

func TestIdentityService_Detect(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(&mockContractStore{}, nil, nil)
	hash, err := svc.HashContent("x", []byte("payload"))
	require.NoError(t, err)

	store := &mockContractStore{contracts: []*domain.Contract{
		{ID: 1, Filename: "Contract-ABC.pdf", ContentHash: hash},
		{ID: 2, Filename: "NDA-2024.pdf", ContentHash: "h2"},
		{ID: 3, Filename: "NDA-2025.pdf", ContentHash: "h3"},
	}}
	svc = NewIdentityService(store, nil, nil)

	tests := []struct {
		name       string
		content    string
		filename   string
		wantStatus IdentityStatus
		wantTarget int64
	}{
		{name: "duplicate", content: "payload", filename: "renamed.pdf", wantStatus: IdentityDuplicate, wantTarget: 1},
		{name: "update", content: "other", filename: "Contract-ABD.pdf", wantStatus: IdentityUpdate, wantTarget: 1},
		{name: "ambiguous", content: "other", filename: "NDA-2026.pdf", wantStatus: IdentityAmbiguous},
		{name: "new", content: "other", filename: "Invoice.xlsx", wantStatus: IdentityNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.Detect(ctx, []byte(tt.content), tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, d.Status)
			assert.Equal(t, tt.wantTarget, d.Target())
		})
	}

	_, err = svc.Detect(ctx, nil, "empty.pdf")
	var hashErr *domain.HashComputationError
	assert.ErrorAs(t, err, &hashErr)
}

func TestIdentityStatus_String(t *testing.T) {
	assert.Equal(t, "new", IdentityNew.String())
	assert.Equal(t, "duplicate", IdentityDuplicate.String())
	assert.Equal(t, "update", IdentityUpdate.String())
	assert.Equal(t, "ambiguous", IdentityAmbiguous.String())
	b, err := IdentityAmbiguous.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ambiguous", string(b))
}
