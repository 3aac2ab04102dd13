package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/incidents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCreator implements IncidentCreator for testing. Inputs with the title
// "INVALID" fail validation; "PERSISTFAIL" fails persistence.
type mockCreator struct {
	created []incidents.CreateInput
}

func (m *mockCreator) Create(_ context.Context, input incidents.CreateInput) (*domain.Incident, error) {
	switch input.Title {
	case "INVALID":
		return nil, incidents.ValidationErrors{
			{Field: "title", Message: "must be at least 5 characters"},
		}
	case "PERSISTFAIL":
		return nil, fmt.Errorf("create incident: %w", incidents.ErrPersistence)
	}
	m.created = append(m.created, input)
	return &domain.Incident{
		ID:     fmt.Sprintf("inc-%d", len(m.created)),
		Title:  input.Title,
		Status: domain.StatusOpen,
	}, nil
}

func rowsFrom(t *testing.T, csv string) *RowReader {
	t.Helper()
	rr, err := NewRowReader(strings.NewReader(csv))
	require.NoError(t, err)
	return rr
}

func TestPipeline_AllValid(t *testing.T) {
	creator := &mockCreator{}
	pipeline := NewPipeline(creator, 0)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"Second incident here,Something broke in the second place,SAFETY,LOW\n"

	summary, err := pipeline.Run(context.Background(), rowsFrom(t, csv))
	require.NoError(t, err)

	assert.Equal(t, Summary{TotalRows: 2, Created: 2, Skipped: 0}, summary)
	require.Len(t, creator.created, 2)
	// input order preserved
	assert.Equal(t, "First incident report", creator.created[0].Title)
	assert.Equal(t, "Second incident here", creator.created[1].Title)
}

func TestPipeline_SkipsInvalidRowsAndContinues(t *testing.T) {
	creator := &mockCreator{}
	pipeline := NewPipeline(creator, 0)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"INVALID,this row fails validation,IT,HIGH\n" +
		"Third incident here,Something broke in the third place,OTHER,MEDIUM\n" +
		"INVALID,this one too,SAFETY,LOW\n"

	summary, err := pipeline.Run(context.Background(), rowsFrom(t, csv))
	require.NoError(t, err)

	assert.Equal(t, Summary{TotalRows: 4, Created: 2, Skipped: 2}, summary)
	require.Len(t, creator.created, 2)
	assert.Equal(t, "First incident report", creator.created[0].Title)
	assert.Equal(t, "Third incident here", creator.created[1].Title)
}

func TestPipeline_EmptyBody(t *testing.T) {
	pipeline := NewPipeline(&mockCreator{}, 0)

	summary, err := pipeline.Run(context.Background(),
		rowsFrom(t, "title,description,category,severity\n"))
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestPipeline_MaxRows(t *testing.T) {
	creator := &mockCreator{}
	pipeline := NewPipeline(creator, 2)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"Second incident here,Something broke in the second place,IT,HIGH\n" +
		"Third incident here,Something broke in the third place,IT,HIGH\n"

	_, err := pipeline.Run(context.Background(), rowsFrom(t, csv))
	assert.ErrorIs(t, err, ErrTooManyRows)
	// rows created before the cap remain, per no-rollback semantics
	assert.Len(t, creator.created, 2)
}

func TestPipeline_MalformedRowAbortsOnce(t *testing.T) {
	creator := &mockCreator{}
	pipeline := NewPipeline(creator, 0)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"broken,row\n"

	summary, err := pipeline.Run(context.Background(), rowsFrom(t, csv))
	assert.ErrorIs(t, err, ErrMalformedCSV)
	assert.Equal(t, 1, summary.Created, "rows before the structural error are not rolled back")
}

func TestPipeline_PersistenceFailureAborts(t *testing.T) {
	creator := &mockCreator{}
	pipeline := NewPipeline(creator, 0)

	csv := "title,description,category,severity\n" +
		"First incident report,Something broke in the first place,IT,HIGH\n" +
		"PERSISTFAIL,the store rejects this row,IT,HIGH\n" +
		"Third incident here,never reached,IT,HIGH\n"

	summary, err := pipeline.Run(context.Background(), rowsFrom(t, csv))
	assert.ErrorIs(t, err, incidents.ErrPersistence)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, creator.created, 1)
}
