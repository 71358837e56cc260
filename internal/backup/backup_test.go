package backup

import (
	"fmt"
	"strings"
	"testing"

	apperrors "smsview/internal/errors"
	"smsview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []models.Message
	}{
		{
			name:  "single received message",
			input: `<smses><sms type="1" contact_name="Alice" body="Hi" readable_date="Jan 1"/></smses>`,
			expected: []models.Message{
				{Type: "1", ContactName: "Alice", Body: "Hi", Date: "Jan 1"},
			},
		},
		{
			name:  "sent message without contact or date",
			input: `<smses><sms type="2" body="Yo"/></smses>`,
			expected: []models.Message{
				{Type: "2", ContactName: "Me", Body: "Yo", Date: ""},
			},
		},
		{
			name:     "empty collection",
			input:    `<smses></smses>`,
			expected: []models.Message{},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []models.Message{},
		},
		{
			name:     "whitespace only",
			input:    "  \n\t ",
			expected: []models.Message{},
		},
		{
			name:     "declaration only",
			input:    `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>`,
			expected: []models.Message{},
		},
		{
			name:     "different root",
			input:    `<calls><call number="123" type="1"/></calls>`,
			expected: []models.Message{},
		},
		{
			name:  "sent ignores contact name",
			input: `<smses><sms type="2" contact_name="Bob" body="x" readable_date="d"/></smses>`,
			expected: []models.Message{
				{Type: "2", ContactName: "Me", Body: "x", Date: "d"},
			},
		},
		{
			name:  "empty contact name falls back",
			input: `<smses><sms type="1" contact_name="" body="x"/></smses>`,
			expected: []models.Message{
				{Type: "1", ContactName: "Unknown", Body: "x", Date: ""},
			},
		},
		{
			name:  "missing type is treated as received",
			input: `<smses><sms contact_name="Carol" body="hey"/></smses>`,
			expected: []models.Message{
				{Type: "", ContactName: "Carol", Body: "hey", Date: ""},
			},
		},
		{
			name:  "missing type and contact",
			input: `<smses><sms/></smses>`,
			expected: []models.Message{
				{Type: "", ContactName: "Unknown", Body: "", Date: ""},
			},
		},
		{
			name:  "other type codes pass through",
			input: `<smses><sms type="3" contact_name="Dan" body="draft"/></smses>`,
			expected: []models.Message{
				{Type: "3", ContactName: "Dan", Body: "draft", Date: ""},
			},
		},
		{
			name:  "child elements are read like attributes",
			input: `<smses><sms><type>1</type><contact_name>Eve</contact_name><body>nested</body><readable_date>Feb 2</readable_date></sms></smses>`,
			expected: []models.Message{
				{Type: "1", ContactName: "Eve", Body: "nested", Date: "Feb 2"},
			},
		},
		{
			name:  "attribute wins over child element",
			input: `<smses><sms body="attr"><body>child</body></sms></smses>`,
			expected: []models.Message{
				{Type: "", ContactName: "Unknown", Body: "attr", Date: ""},
			},
		},
		{
			name: "unrelated elements are ignored",
			input: `<smses count="3">
				<sms type="1" contact_name="Alice" body="one"/>
				<mms date="1" text_only="1"><parts><part ct="text/plain" text="skip"/></parts></mms>
				<sms type="2" body="two"/>
			</smses>`,
			expected: []models.Message{
				{Type: "1", ContactName: "Alice", Body: "one", Date: ""},
				{Type: "2", ContactName: "Me", Body: "two", Date: ""},
			},
		},
		{
			name:  "entities are decoded",
			input: `<smses><sms type="1" contact_name="A &amp; B" body="&lt;3 &#10;ok"/></smses>`,
			expected: []models.Message{
				{Type: "1", ContactName: "A & B", Body: "<3 \nok", Date: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_PreservesCountAndOrder(t *testing.T) {
	const n = 250

	var b strings.Builder
	b.WriteString(`<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>` + "\n")
	b.WriteString(fmt.Sprintf(`<smses count="%d">`, n))
	for i := 0; i < n; i++ {
		msgType := "1"
		if i%3 == 0 {
			msgType = "2"
		}
		b.WriteString(fmt.Sprintf(`<sms type="%s" contact_name="Contact %d" body="message %d" readable_date="day %d"/>`, msgType, i, i, i))
	}
	b.WriteString(`</smses>`)

	got, err := Normalize(b.String())
	require.NoError(t, err)
	require.Len(t, got, n)

	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Body)
		assert.Equal(t, fmt.Sprintf("day %d", i), msg.Date)
		if i%3 == 0 {
			assert.Equal(t, "Me", msg.ContactName)
		} else {
			assert.Equal(t, fmt.Sprintf("Contact %d", i), msg.ContactName)
		}
	}
}

func TestNormalize_SingletonIsSequence(t *testing.T) {
	got, err := Normalize(`<smses><sms type="1" body="only"/></smses>`)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNormalize_Idempotent(t *testing.T) {
	input := `<smses><sms type="1" contact_name="Alice" body="Hi"/><sms type="2" body="Yo"/></smses>`

	first, err := Normalize(input)
	require.NoError(t, err)
	second, err := Normalize(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalize_MalformedXML(t *testing.T) {
	inputs := []string{
		`<smses><sms type="1"`,
		`<smses><sms type="1" body="x"></smses>`,
		`<smses><sms type=1/></smses>`,
		`<smses>`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got, err := Normalize(input)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, apperrors.ErrCodeParseFailure, apperrors.GetCode(err))
		})
	}
}

func TestNormalize_SurrogatePairReferences(t *testing.T) {
	got, err := Normalize(`<smses><sms type="1" body="hi &#55357;&#56832;"/></smses>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi \U0001F600", got[0].Body)
}

func TestNormalize_DeclaredLatin1(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><smses><sms type=\"1\" body=\"caf\xe9\"/></smses>"

	got, err := Normalize(input)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "café", got[0].Body)
}

func TestNormalize_OnlyFirstRootIsRead(t *testing.T) {
	got, err := Normalize(`<smses><sms body="a"/></smses><smses><sms body="b"/></smses>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Body)
}

func TestParse_KeepsAbsentFieldsNil(t *testing.T) {
	raws, err := Parse(`<smses><sms type="1" address="+15550100"/></smses>`)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	raw := raws[0]
	require.NotNil(t, raw.Type)
	assert.Equal(t, "1", *raw.Type)
	require.NotNil(t, raw.Address)
	assert.Equal(t, "+15550100", *raw.Address)
	assert.Nil(t, raw.Body)
	assert.Nil(t, raw.ContactName)
	assert.Nil(t, raw.ReadableDate)
}

func TestToMessage(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		raw      models.RawSMS
		expected models.Message
	}{
		{
			name:     "all absent",
			raw:      models.RawSMS{},
			expected: models.Message{ContactName: "Unknown"},
		},
		{
			name:     "sent",
			raw:      models.RawSMS{Type: str("2"), ContactName: str("Zed"), Body: str("b")},
			expected: models.Message{Type: "2", ContactName: "Me", Body: "b"},
		},
		{
			name:     "received with empty body",
			raw:      models.RawSMS{Type: str("1"), ContactName: str("Zed"), Body: str(""), ReadableDate: str("now")},
			expected: models.Message{Type: "1", ContactName: "Zed", Body: "", Date: "now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMessage(tt.raw))
		})
	}
}

func TestJoinSurrogateRefs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no references", "plain", "plain"},
		{"decimal pair", "&#55357;&#56832;", "&#128512;"},
		{"hex pair", "&#xD83D;&#xde00;", "&#128512;"},
		{"mixed forms", "&#55357;&#xDE00;", "&#128512;"},
		{"not surrogates", "&#12345;&#23456;", "&#12345;&#23456;"},
		{"bmp reference before pair", "&#20320;&#55357;&#56832;", "&#20320;&#128512;"},
		{"two pairs", "a&#55357;&#56832;b&#55357;&#56833;", "a&#128512;b&#128513;"},
		{"low before high", "&#56832;&#55357;&#56832;", "&#56832;&#128512;"},
		{"pair split by text", "&#55357; &#56832;", "&#55357; &#56832;"},
		{"lone high surrogate", "x&#55357;y", "x&#55357;y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, joinSurrogateRefs(tt.input))
		})
	}
}

func TestNormalize_SurrogatePairAfterBMPRef(t *testing.T) {
	got, err := Normalize(`<smses><sms type="1" body="&#20320;&#55357;&#56832;"/></smses>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "你😀", got[0].Body)
}

func TestNormalize_HexSurrogatePair(t *testing.T) {
	got, err := Normalize(`<smses><sms type="1" body="&#xD83D;&#xDE00;!"/></smses>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "😀!", got[0].Body)
}

func TestNormalize_LoneSurrogateBecomesReplacementChar(t *testing.T) {
	got, err := Normalize(`<smses><sms type="1" body="a&#56832;b"/></smses>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a\uFFFDb", got[0].Body)
}
