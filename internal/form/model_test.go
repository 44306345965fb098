package form

import (
	"fmt"
	"testing"
	"time"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func launch() event.Event {
	return event.Event{
		ID:       "ev1",
		Name:     "Launch",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Location: "HQ",
		Fields: []field.Schema{
			{Name: "name", Label: "Full Name", Required: true, Type: field.TypeText},
			{Name: "age", Label: "Age", Required: true, Type: field.TypeNumber},
			{Name: "email", Label: "Email", Required: false, Type: field.TypeEmail},
		},
		IsActive: true,
	}
}

func fill(t *testing.T, m *Model, slot int, name string, age any) {
	t.Helper()
	require.NoError(t, m.Set(slot, "name", name))
	require.NoError(t, m.Set(slot, "age", age))
}

func TestModel_StartsAsSingleAttendee(t *testing.T) {
	m := ForEvent(launch())

	assert.False(t, m.IsGroup())
	assert.Equal(t, 2, m.GroupSize())
	assert.Equal(t, 1, m.SlotCount())
}

func TestModel_GroupToggle(t *testing.T) {
	m := ForEvent(launch())
	fill(t, m, 0, "Ana", 30)

	m.SetGroup(true)
	require.Equal(t, 2, m.SlotCount())
	assert.Equal(t, "Ana", m.Slot(0).Name(), "slot 0 keeps its answers")
	assert.Empty(t, m.Slot(1))

	m.SetGroupSize(4)
	require.Equal(t, 4, m.SlotCount())
	fill(t, m, 3, "Dan", 41)

	m.SetGroupSize(3)
	assert.Equal(t, 3, m.SlotCount())

	m.SetGroup(false)
	assert.Equal(t, 1, m.SlotCount())
	assert.Equal(t, 2, m.GroupSize())
	assert.Equal(t, "Ana", m.Slot(0).Name())
}

func TestModel_GroupSizeIgnoredWhenIndividual(t *testing.T) {
	m := ForEvent(launch())
	m.SetGroupSize(5)

	assert.Equal(t, 1, m.SlotCount())
	assert.Equal(t, 2, m.GroupSize())
}

func TestModel_SetRejectsUnknownField(t *testing.T) {
	m := ForEvent(launch())

	err := m.Set(0, "shoe_size", 44)
	assert.ErrorIs(t, err, ErrUnknownField)

	err = m.Set(3, "name", "Ana")
	assert.ErrorIs(t, err, ErrSlotRange)

	err = New().Set(0, "name", "Ana")
	assert.ErrorIs(t, err, ErrNoEvent)
}

func TestModel_Plan(t *testing.T) {
	m := ForEvent(launch())
	m.SetGroup(true)

	p, err := m.Plan()
	require.NoError(t, err)

	assert.Equal(t, "ev1", p.EventID)
	assert.True(t, p.IsGroup)
	assert.Equal(t, 2, p.GroupSize)
	require.Len(t, p.Slots, 2)
	assert.Equal(t, "Person 2", p.Slots[1].Title)
	require.Len(t, p.Slots[0].Inputs, 3)
	assert.Equal(t, "Full Name *", p.Slots[0].Inputs[0].Label)
	assert.Equal(t, "Email", p.Slots[0].Inputs[2].Label)
	assert.Equal(t, "email", p.Slots[0].Inputs[2].InputType)
}

func TestModel_PlanWithoutEvent(t *testing.T) {
	_, err := New().Plan()
	assert.ErrorIs(t, err, ErrNoEvent)
}

func TestModel_PlanUsesDefaultsForLegacyEvent(t *testing.T) {
	m := ForEvent(event.Event{ID: "old"})

	p, err := m.Plan()
	require.NoError(t, err)
	assert.Len(t, p.Slots[0].Inputs, len(field.Defaults()))
}

func TestModel_ValidateReportsEveryFailure(t *testing.T) {
	m := ForEvent(launch())
	m.SetGroup(true)
	fill(t, m, 0, "Ana", "thirty")
	require.NoError(t, m.Set(1, "email", "not-an-email"))

	err := m.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	paths := map[string]string{}
	for _, f := range verr.Fields {
		paths[f.Path] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"people[0].age":   "numeric",
		"people[1].name":  "required",
		"people[1].age":   "required",
		"people[1].email": "email",
	}, paths)
}

func TestModel_GroupSizeOutOfRange(t *testing.T) {
	for _, n := range []int{0, 1, 11, 12} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			m := ForEvent(launch())
			m.SetGroup(true)
			m.SetGroupSize(n)

			_, err := m.Submit(time.Now())
			assert.ErrorIs(t, err, registration.ErrGroupSize)
		})
	}
}

func TestModel_Submit(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	m := ForEvent(launch())
	fill(t, m, 0, " Ana ", "30")

	reg, err := m.Submit(now)
	require.NoError(t, err)

	assert.Equal(t, "ev1", reg.EventID)
	assert.False(t, reg.IsGroup)
	assert.Equal(t, 1, reg.GroupSize)
	assert.Equal(t, now.UTC(), reg.Timestamp)
	require.Len(t, reg.People, 1)
	assert.Equal(t, registration.Person{"name": "Ana", "age": float64(30)}, reg.People[0])
}

func TestModel_ResetKeepsEvent(t *testing.T) {
	m := ForEvent(launch())
	m.SetGroup(true)
	fill(t, m, 1, "Bo", 9)

	m.Reset()

	_, ok := m.Event()
	assert.True(t, ok)
	assert.False(t, m.IsGroup())
	assert.Equal(t, 1, m.SlotCount())
	assert.Empty(t, m.Slot(0))
}

func TestFromSubmission(t *testing.T) {
	tests := []struct {
		name    string
		req     registration.CreateRegistrationRequest
		wantErr error
		slots   int
	}{
		{
			name:  "individual",
			req:   registration.CreateRegistrationRequest{People: []map[string]any{{"name": "Ana", "age": 30}}},
			slots: 1,
		},
		{
			name: "group of three",
			req: registration.CreateRegistrationRequest{IsGroup: true, GroupSize: 3, People: []map[string]any{
				{"name": "A", "age": 1}, {"name": "B", "age": 2}, {"name": "C", "age": 3},
			}},
			slots: 3,
		},
		{
			name:    "group too large",
			req:     registration.CreateRegistrationRequest{IsGroup: true, GroupSize: 12, People: []map[string]any{{}}},
			wantErr: registration.ErrGroupSize,
		},
		{
			name:    "group too small",
			req:     registration.CreateRegistrationRequest{IsGroup: true, GroupSize: 1, People: []map[string]any{{}}},
			wantErr: registration.ErrGroupSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromSubmission(launch(), tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.slots, m.SlotCount())
			require.NoError(t, m.Validate())
		})
	}
}

func TestFromSubmission_PeopleCountMismatch(t *testing.T) {
	req := registration.CreateRegistrationRequest{IsGroup: true, GroupSize: 3, People: []map[string]any{{"name": "A", "age": 1}}}

	_, err := FromSubmission(launch(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "people", verr.Fields[0].Path)
}

func TestFromSubmission_DropsKeysOutsideSchema(t *testing.T) {
	req := registration.CreateRegistrationRequest{People: []map[string]any{
		{"name": "Ana", "age": 30, "eventId": "spoofed", "shoe_size": 44},
	}}

	m, err := FromSubmission(launch(), req)
	require.NoError(t, err)

	reg, err := m.Submit(time.Now())
	require.NoError(t, err)
	assert.Equal(t, registration.Person{"name": "Ana", "age": float64(30)}, reg.People[0])
}

// The slot count always follows the group toggle and size, whatever order the edits arrive in.
func TestProperty_SlotsFollowGroupSize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := ForEvent(launch())

		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.SampledFrom([]string{"on", "off", "size"}).Draw(t, fmt.Sprintf("op%d", i)) {
			case "on":
				was := m.IsGroup()
				m.SetGroup(true)
				if !was && m.SlotCount() != 2 {
					t.Fatalf("enabling group gave %d slots", m.SlotCount())
				}
			case "off":
				m.SetGroup(false)
			case "size":
				m.SetGroupSize(rapid.IntRange(registration.MinGroupSize, registration.MaxGroupSize).Draw(t, fmt.Sprintf("n%d", i)))
			}

			want := 1
			if m.IsGroup() {
				want = m.GroupSize()
			}
			if m.SlotCount() != want {
				t.Fatalf("slots = %d, want %d (group=%v)", m.SlotCount(), want, m.IsGroup())
			}
		}
	})
}

func TestModel_HugeGroupSizeKeepsSlotsBounded(t *testing.T) {
	m := ForEvent(launch())
	m.SetGroup(true)
	m.SetGroupSize(5_000_000)

	assert.Equal(t, 5_000_000, m.GroupSize())
	assert.Equal(t, registration.MaxGroupSize, m.SlotCount())

	_, err := m.Submit(time.Now())
	assert.ErrorIs(t, err, registration.ErrGroupSize)
}

// Fresh slots after growing a group are always empty.
func TestProperty_NewSlotsAreEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := ForEvent(launch())
		m.SetGroup(true)
		_ = m.Set(0, "name", "Ana")
		_ = m.Set(1, "name", "Bo")

		shrink := rapid.IntRange(registration.MinGroupSize, registration.MaxGroupSize).Draw(t, "shrink")
		grow := rapid.IntRange(shrink, registration.MaxGroupSize).Draw(t, "grow")

		m.SetGroupSize(shrink)
		m.SetGroupSize(grow)

		for i := 2; i < m.SlotCount(); i++ {
			if len(m.Slot(i)) != 0 {
				t.Fatalf("slot %d not empty: %v", i, m.Slot(i))
			}
		}
	})
}
