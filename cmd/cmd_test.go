package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/agent"
	"github.com/teemow/agendabot/internal/router"
	"github.com/teemow/agendabot/internal/store"
)

func TestCallArguments(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		business string
		want     string
		wantErr  bool
	}{
		{name: "empty", raw: "", want: `{}`},
		{name: "business flag", raw: `{"date":"2025-05-19"}`, business: "biz-1", want: `{"businessId":"biz-1","date":"2025-05-19"}`},
		{name: "business flag wins", raw: `{"businessId":"other"}`, business: "biz-1", want: `{"businessId":"biz-1"}`},
		{name: "null", raw: `null`, business: "biz-1", want: `{"businessId":"biz-1"}`},
		{name: "not an object", raw: `[1,2]`, wantErr: true},
		{name: "invalid json", raw: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callArguments(tt.raw, tt.business)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestParseHoursDocument(t *testing.T) {
	doc, err := parseHoursDocument([]byte(`
allowOverlapping: true
maxOverlapping: 2
hours:
  monday:
    - start: "09:00"
      end: "13:00"
    - start: "15:00"
      end: "19:00"
  saturday:
    - start: "10:00"
      end: "14:00"
`))
	require.NoError(t, err)
	assert.True(t, doc.AllowOverlapping)
	assert.Equal(t, 2, doc.MaxOverlapping)
	assert.Equal(t, []store.TimeRange{{Start: "09:00", End: "13:00"}, {Start: "15:00", End: "19:00"}}, doc.Hours["monday"])
	assert.Len(t, doc.Hours["saturday"], 1)

	doc, err = parseHoursDocument([]byte("allowOverlapping: false\n"))
	require.NoError(t, err)
	assert.NotNil(t, doc.Hours)

	_, err = parseHoursDocument([]byte("opening: always\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = parseHoursDocument(nil)
	assert.Error(t, err)
}

func TestWriteHoursRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHours(&buf, &store.BusinessHours{
		BusinessID:     "biz-1",
		Hours:          store.WeeklyHours{"friday": {{Start: "08:00", End: "12:00"}}},
		MaxOverlapping: 1,
	}))

	doc, err := parseHoursDocument(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "08:00", doc.Hours["friday"][0].Start)
	assert.Equal(t, 1, doc.MaxOverlapping)
}

func TestGenerateOperationsMarkdown(t *testing.T) {
	r := router.New(nil)
	md := generateOperationsMarkdown(r.Definitions(), r.IsCalendarOperation)

	assert.Contains(t, md, "# Operations Reference")
	assert.Contains(t, md, "## Calendar Operations")
	assert.Contains(t, md, "## Business Settings")
	assert.Contains(t, md, "### "+router.OpCheckAvailability)
	assert.Contains(t, md, "### "+router.OpSaveBusinessHours)
	assert.Contains(t, md, "- `businessId` (required): Business identifier")

	// Calendar operations are listed before settings.
	assert.Less(t, strings.Index(md, "### "+router.OpCheckAvailability), strings.Index(md, "## Business Settings"))
}

type scriptedHandler struct {
	inbound []agent.Inbound
	fail    string
}

func (s *scriptedHandler) HandleMessage(_ context.Context, in agent.Inbound) (string, error) {
	s.inbound = append(s.inbound, in)
	if in.Text == s.fail {
		return agent.Apology, errors.New("run failed")
	}
	return "re: " + in.Text, nil
}

func TestChatOnce(t *testing.T) {
	h := &scriptedHandler{fail: "boom"}
	var out bytes.Buffer

	require.NoError(t, chatOnce(context.Background(), h, &out, agent.Inbound{Sender: "521", Text: "hola"}))
	assert.Equal(t, "re: hola\n", out.String())

	out.Reset()
	err := chatOnce(context.Background(), h, &out, agent.Inbound{Sender: "521", Text: "boom"})
	assert.Error(t, err)
	assert.Equal(t, agent.Apology+"\n", out.String())
}

func TestChatLines(t *testing.T) {
	h := &scriptedHandler{fail: "boom"}
	var out bytes.Buffer

	err := chatLines(context.Background(), h, strings.NewReader("hola\n\nboom\n  adios \n"), &out, "521", "biz-1")
	require.NoError(t, err)

	require.Len(t, h.inbound, 3)
	assert.Equal(t, agent.Inbound{Sender: "521", BusinessID: "biz-1", Text: "adios"}, h.inbound[2])
	assert.Equal(t, "re: hola\n"+agent.Apology+"\nre: adios\n", out.String())
}
