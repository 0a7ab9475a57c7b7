package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

var testTargets = []domain.TargetDescriptor{
	{Name: "CPU", Keyword: "Core Ultra 7 265KF"},
	{Name: "RAM", Keyword: "LancerBlade 32G", TieBreak: domain.TieBreakShortestText},
	{Name: "Case", Keyword: "GT502 Horizon", TieBreak: domain.TieBreakHighestPrice},
	{Name: "PSU", Keyword: "TITAN GOLD 1000W"},
	{Name: "VGA", Keyword: "TUF-RTX5070Ti-O16G"},
	{Name: "OS", Keyword: "Windows 12 Pro"},
}

var testCatalog = entries(
	"Intel Core Ultra 7 265KF【20核/20緒】 $12990",
	"ADATA XPG LancerBlade 32G(16G*2) DDR5-6000 RGB 黑 $2890",
	"ADATA XPG LancerBlade 32G(16G*2) DDR5-6000 $2590",
	"Montech GT502 Horizon 黑 $3600",
	"Montech GT502 Horizon 白 $4200",
	"全漢 TITAN GOLD 1000W 金牌 缺貨",
	"ASUS TUF RTX5070Ti O16G GAMING $33990",
	"Windows 11 Pro 盒裝 $7990",
)

func TestMatchResolver_Resolve(t *testing.T) {
	resolver := NewMatchResolver(NewCatalogMatcher(MatchConfig{}), 0)
	ctx := context.Background()

	outcomes, err := resolver.Resolve(ctx, testTargets, testCatalog)
	require.NoError(t, err)
	require.Len(t, outcomes, len(testTargets))

	for i, o := range outcomes {
		assert.Equal(t, testTargets[i].Name, o.Target.Name, "outcomes keep target order")
	}

	t.Run("matched components carry their price", func(t *testing.T) {
		assert.Equal(t, domain.StatusMatched, outcomes[0].Status)
		assert.Equal(t, int64(12990), outcomes[0].Price)
		assert.True(t, outcomes[0].PriceOK)

		assert.Equal(t, int64(2590), outcomes[1].Price)
		assert.Equal(t, int64(4200), outcomes[2].Price)
		assert.Equal(t, 2, outcomes[2].Candidates)
	})

	t.Run("unpriced listing is an extraction failure", func(t *testing.T) {
		psu := outcomes[3]
		assert.Equal(t, domain.StatusExtractionFailed, psu.Status)
		assert.Equal(t, "全漢 TITAN GOLD 1000W 金牌 缺貨", psu.MatchedText)
		assert.Equal(t, int64(0), psu.Price)
		assert.False(t, psu.PriceOK)
		assert.False(t, psu.Matched())
	})

	t.Run("fallback match is flagged", func(t *testing.T) {
		vga := outcomes[4]
		assert.Equal(t, domain.StatusMatched, vga.Status)
		assert.True(t, vga.Fallback)
		assert.Equal(t, int64(33990), vga.Price)
	})

	t.Run("missing model has no candidate", func(t *testing.T) {
		os := outcomes[5]
		assert.Equal(t, domain.StatusNoCandidate, os.Status)
		assert.Empty(t, os.MatchedText)
		assert.Equal(t, int64(0), os.Price)
	})
}

func TestMatchResolver_EmptyInputs(t *testing.T) {
	resolver := NewMatchResolver(NewCatalogMatcher(MatchConfig{}), 4)
	ctx := context.Background()

	t.Run("no targets", func(t *testing.T) {
		outcomes, err := resolver.Resolve(ctx, nil, testCatalog)
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})

	t.Run("empty catalog leaves every target unresolved", func(t *testing.T) {
		outcomes, err := resolver.Resolve(ctx, testTargets, nil)
		require.NoError(t, err)
		require.Len(t, outcomes, len(testTargets))
		for _, o := range outcomes {
			assert.Equal(t, domain.StatusNoCandidate, o.Status, o.Target.Name)
		}
	})
}

func TestMatchResolver_Deterministic(t *testing.T) {
	ctx := context.Background()
	serial, err := NewMatchResolver(NewCatalogMatcher(MatchConfig{}), 1).Resolve(ctx, testTargets, testCatalog)
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			resolver := NewMatchResolver(NewCatalogMatcher(MatchConfig{}), workers)
			for i := 0; i < 20; i++ {
				got, err := resolver.Resolve(ctx, testTargets, testCatalog)
				require.NoError(t, err)
				if diff := cmp.Diff(serial, got); diff != "" {
					t.Fatalf("Resolve() mismatch (-serial +concurrent):\n%s", diff)
				}
			}
		})
	}
}

func TestMatchResolver_CanceledContext(t *testing.T) {
	resolver := NewMatchResolver(NewCatalogMatcher(MatchConfig{}), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := resolver.Resolve(ctx, testTargets, testCatalog)
	assert.Nil(t, outcomes)
	assert.True(t, errors.Is(err, context.Canceled))
}
