package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/store"
)

func TestMatchScore(t *testing.T) {
	tests := []struct {
		typeName, title string
		want            int
	}{
		{"Consulta", "consulta", 3},
		{" Consulta ", "CONSULTA", 3},
		{"Consulta general", "consulta", 2},
		{"Limpieza", "Limpieza dental profunda", 1},
		{"Limpieza", "Revision", 0},
		{"", "Revision", 0},
		{"Limpieza", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, matchScore(tt.typeName, tt.title))
		})
	}
}

func TestResolveDuration(t *testing.T) {
	types := []store.AppointmentType{
		{ID: "t1", Name: "Consulta general", Duration: 30},
		{ID: "t2", Name: "Consulta", Duration: 45},
		{ID: "t3", Name: "Limpieza", Duration: 90},
		{ID: "t4", Name: "Limpieza express", Duration: 20},
	}

	tests := []struct {
		name   string
		types  []store.AppointmentType
		typeID string
		title  string
		want   int
		wantID string
		source DurationSource
	}{
		{"by id", types, "t3", "Consulta", 90, "t3", DurationFromTypeID},
		{"unknown id falls back to title", types, "nope", "consulta", 45, "t2", DurationFromTitle},
		{"exact beats contains", types, "", "Consulta", 45, "t2", DurationFromTitle},
		{"contains tie goes to first configured", types, "", "limp", 90, "t3", DurationFromTitle},
		{"title containing type name", types, "", "Consulta de rutina", 45, "t2", DurationFromTitle},
		{"title containing two type names", types, "", "Limpieza express urgente", 90, "t3", DurationFromTitle},
		{"no match uses first configured", types, "nope", "Ortodoncia", 30, "t1", DurationFirstType},
		{"no types uses default", nil, "nope", "Ortodoncia", DefaultAppointmentDuration, "", DurationDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDuration(tt.types, tt.typeID, tt.title)
			assert.Equal(t, tt.want, got.Minutes)
			assert.Equal(t, tt.source, got.Source)
			if tt.wantID == "" {
				assert.Nil(t, got.Type)
			} else {
				require.NotNil(t, got.Type)
				assert.Equal(t, tt.wantID, got.Type.ID)
			}
		})
	}
}

func TestAppointmentTypeCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SaveAppointmentType(ctx, store.AppointmentType{BusinessID: testBusiness, Name: "Consulta", Duration: 3})
	assert.Equal(t, "invalid_duration", CodeOf(err))
	_, err = f.engine.SaveAppointmentType(ctx, store.AppointmentType{BusinessID: testBusiness, Name: " ", Duration: 30})
	assert.Equal(t, "missing_name", CodeOf(err))
	_, err = f.engine.SaveAppointmentType(ctx, store.AppointmentType{ID: "missing", BusinessID: testBusiness, Name: "X", Duration: 30})
	assert.Equal(t, KindNotFound, KindOf(err))

	saved, err := f.engine.SaveAppointmentType(ctx, store.AppointmentType{BusinessID: testBusiness, Name: " Consulta ", Duration: 30})
	require.NoError(t, err)
	assert.Equal(t, "Consulta", saved.Name)

	saved.Duration = 45
	updated, err := f.engine.SaveAppointmentType(ctx, *saved)
	require.NoError(t, err)
	assert.Equal(t, 45, updated.Duration)

	list, err := f.engine.ListAppointmentTypes(ctx, testBusiness)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.engine.DeleteAppointmentType(ctx, testBusiness, saved.ID))
	assert.Equal(t, KindNotFound, KindOf(f.engine.DeleteAppointmentType(ctx, testBusiness, saved.ID)))
}
