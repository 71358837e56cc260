// Package backup reads "SMS Backup & Restore" XML exports and turns their sms
// records into display-ready messages.
package backup

import (
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	apperrors "smsview/internal/errors"
	"smsview/internal/models"

	"golang.org/x/net/html/charset"
)

const (
	rootElement = "smses"
	smsElement  = "sms"

	contactNameSelf    = "Me"
	contactNameUnknown = "Unknown"
)

// rawRecord mirrors one sms element. Every field may arrive as an attribute or
// as a child element of the same name.
type rawRecord struct {
	TypeAttr         *string `xml:"type,attr"`
	TypeElem         *string `xml:"type"`
	ContactNameAttr  *string `xml:"contact_name,attr"`
	ContactNameElem  *string `xml:"contact_name"`
	BodyAttr         *string `xml:"body,attr"`
	BodyElem         *string `xml:"body"`
	ReadableDateAttr *string `xml:"readable_date,attr"`
	ReadableDateElem *string `xml:"readable_date"`
	AddressAttr      *string `xml:"address,attr"`
	AddressElem      *string `xml:"address"`
}

func (r rawRecord) toRaw() models.RawSMS {
	return models.RawSMS{
		Type:         firstPresent(r.TypeAttr, r.TypeElem),
		ContactName:  firstPresent(r.ContactNameAttr, r.ContactNameElem),
		Body:         firstPresent(r.BodyAttr, r.BodyElem),
		ReadableDate: firstPresent(r.ReadableDateAttr, r.ReadableDateElem),
		Address:      firstPresent(r.AddressAttr, r.AddressElem),
	}
}

// Normalize parses a backup document and maps every sms record to a Message,
// preserving document order. Empty input or a document without an smses root
// yields an empty slice.
func Normalize(xmlText string) ([]models.Message, error) {
	raws, err := Parse(xmlText)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		messages = append(messages, ToMessage(raw))
	}
	return messages, nil
}

// Parse extracts the sms records found under the smses root.
func Parse(xmlText string) ([]models.RawSMS, error) {
	dec := xml.NewDecoder(strings.NewReader(joinSurrogateRefs(xmlText)))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		records []models.RawSMS
		found   bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseFailure(err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != rootElement || found {
			if err := dec.Skip(); err != nil {
				return nil, apperrors.NewParseFailure(err)
			}
			continue
		}

		found = true
		records, err = collect(dec)
		if err != nil {
			return nil, apperrors.NewParseFailure(err)
		}
	}

	if records == nil {
		records = []models.RawSMS{}
	}
	return records, nil
}

// collect gathers the sms children of the current smses element. A single sms
// element yields a one-element slice like any other count.
func collect(dec *xml.Decoder) ([]models.RawSMS, error) {
	records := []models.RawSMS{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != smsElement {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			var rec rawRecord
			if err := dec.DecodeElement(&rec, &t); err != nil {
				return nil, err
			}
			records = append(records, rec.toRaw())
		case xml.EndElement:
			return records, nil
		}
	}
}

// ToMessage applies the display rules to one raw record.
func ToMessage(raw models.RawSMS) models.Message {
	msg := models.Message{
		Type: valueOrEmpty(raw.Type),
		Body: valueOrEmpty(raw.Body),
		Date: valueOrEmpty(raw.ReadableDate),
	}

	switch {
	case msg.Type == models.MessageTypeSent:
		msg.ContactName = contactNameSelf
	case raw.ContactName != nil && *raw.ContactName != "":
		msg.ContactName = *raw.ContactName
	default:
		msg.ContactName = contactNameUnknown
	}
	return msg
}

func firstPresent(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func valueOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

var charRefPattern = regexp.MustCompile(`&#(?:[xX]([0-9A-Fa-f]{1,6})|([0-9]{1,7}));`)

// joinSurrogateRefs rewrites UTF-16 surrogate pairs written as two adjacent
// character references (how the exporter stores emoji) into one reference to
// the combined code point. References are taken one at a time, so a BMP
// reference in front of a pair does not hide it. A surrogate without its
// partner is left alone; encoding/xml decodes it to U+FFFD.
func joinSurrogateRefs(text string) string {
	if !strings.Contains(text, "&#") {
		return text
	}

	refs := charRefPattern.FindAllStringSubmatchIndex(text, -1)
	var b strings.Builder
	last := 0
	for i := 0; i+1 < len(refs); i++ {
		hi, lo := refs[i], refs[i+1]
		if hi[1] != lo[0] {
			continue
		}
		r1, r2 := refValue(text, hi), refValue(text, lo)
		if !utf16.IsSurrogate(r1) || !utf16.IsSurrogate(r2) {
			continue
		}
		r := utf16.DecodeRune(r1, r2)
		if r == unicode.ReplacementChar {
			continue
		}
		b.WriteString(text[last:hi[0]])
		b.WriteString("&#")
		b.WriteString(strconv.Itoa(int(r)))
		b.WriteByte(';')
		last = lo[1]
		i++
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// refValue returns the code point of the reference at loc, a submatch index
// from charRefPattern.
func refValue(text string, loc []int) rune {
	digits, base := "", 10
	switch {
	case loc[2] >= 0:
		digits, base = text[loc[2]:loc[3]], 16
	case loc[4] >= 0:
		digits = text[loc[4]:loc[5]]
	}
	n, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		return unicode.ReplacementChar
	}
	return rune(n)
}
