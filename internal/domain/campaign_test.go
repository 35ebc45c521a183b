package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootFirstOrdersParentsBeforeChildren(t *testing.T) {
	m := BoundaryProjectMapping{
		"D2": {Parent: "P1"},
		"P1": {Parent: "C1"},
		"D1": {Parent: "P1"},
		"C1": {},
		"X1": {Parent: "missing"},
	}
	require.Equal(t, []string{"C1", "X1", "P1", "D1", "D2"}, m.RootFirst())
}

func TestFlattenMapsEveryNodeToItsParent(t *testing.T) {
	tree := Boundary{Code: "C1", BoundaryType: "Country", Children: []Boundary{
		{Code: "P1", BoundaryType: "Province", Children: []Boundary{{Code: "D1", BoundaryType: "District"}}},
	}}
	flat := tree.Flatten()
	require.Len(t, flat, 3)
	require.Equal(t, "", flat["C1"].Parent)
	require.Equal(t, "P1", flat["D1"].Parent)
	require.Equal(t, "District", flat["D1"].BoundaryType)
}

func TestOrderedTypes(t *testing.T) {
	h := BoundaryHierarchy{Levels: []HierarchyLevel{
		{BoundaryType: "Locality", ParentBoundaryType: "District"},
		{BoundaryType: "District", ParentBoundaryType: "Country"},
		{BoundaryType: "Country"},
	}}
	require.Equal(t, []string{"Country", "District", "Locality"}, h.OrderedTypes())
	require.Nil(t, BoundaryHierarchy{}.OrderedTypes())
}

func TestResourceIDsSkipsUnlinkedResources(t *testing.T) {
	c := CampaignDetails{Resources: []CampaignResource{
		{Type: ResourceTypeFacility, ResourceDetailsID: "a"},
		{Type: ResourceTypeUser},
	}}
	require.Equal(t, []string{"a"}, c.ResourceIDs())
}

func TestSnapshotError(t *testing.T) {
	require.Equal(t, ErrorSnapshot{}, SnapshotError(nil))

	wrapped := fmt.Errorf("job failed: %w", ErrInvalidSheetName("Facilities"))
	snap := SnapshotError(wrapped)
	require.Equal(t, http.StatusBadRequest, snap.Status)
	require.Equal(t, CodeInvalidSheetName, snap.Code)

	snap = SnapshotError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, snap.Status)
	require.Equal(t, CodeInternalServerError, snap.Code)
	require.Equal(t, "boom", snap.Description)
}
