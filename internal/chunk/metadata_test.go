package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToFlatProducesOnlyScalars(t *testing.T) {
	m := Metadata{
		Structural: Structural{
			WikiTitle:       "Vault 101",
			SectionTitle:    "History",
			SectionPath:     "Introduction > History",
			SectionLevel:    2,
			Categories:      []string{"Vaults", "Capital Wasteland"},
			WikilinkTargets: []string{"Vault-Tec"},
			InfoboxTypes:    []string{"Infobox vault"},
			GameRefs:        []string{"Fallout 3"},
			ChunkIndex:      1,
		},
		Enriched: Enriched{
			TimePeriod: TimePeriodPreWar,
			YearMin:    2063,
			YearMax:    2277,
			IsPreWar:   true,
			IsPostWar:  true,
			Location:   "",
			ContentType: ContentTypeLocation,
			KnowledgeTier: KnowledgeTierClassified,
			InfoSource:    InfoSourceVaultTec,
		},
	}

	flat := m.ToFlat()
	for k, v := range flat {
		switch v.(type) {
		case string, int, float64, bool:
			// scalar, ok
		default:
			t.Fatalf("key %q has non-scalar value %#v (%T)", k, v, v)
		}
	}

	require.Equal(t, "Vaults,Capital Wasteland", flat["categories"])
	require.Equal(t, 2, flat["category_count"])
	require.NotContains(t, flat, "location") // empty location is dropped, not null
}

func TestToFlatIncludesLocationWhenKnown(t *testing.T) {
	m := Metadata{Enriched: Enriched{Location: "East Coast"}}
	flat := m.ToFlat()
	require.Equal(t, "East Coast", flat["location"])
}
