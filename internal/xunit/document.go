// Package xunit decodes xUnit XML result files and replays them against
// Report Portal as a launch of suite and step items.
package xunit

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed marks a document that does not have the testsuites/testsuite
// shape. It is fatal for that file only.
var ErrMalformed = errors.New("xunit: malformed document")

// Document is the normalized form of one result file: suites in document
// order, whether the file had a testsuites wrapper or a single testsuite root.
type Document struct {
	Suites []Suite
}

// Suite is one testsuite element.
type Suite struct {
	NameAttr *string `xml:"name,attr"`
	IDAttr   *string `xml:"id,attr"`
	Failures string  `xml:"failures,attr"`
	Errors   string  `xml:"errors,attr"`
	Cases    []Case  `xml:"testcase"`
}

// Case is one testcase element.
type Case struct {
	ClassName string
	NameAttr  *string
	IDAttr    *string
	Time      string
	SystemOut *string
	Skipped   *Message
	// Problems holds the failure and error elements in document order.
	Problems []Message
}

// Element names of the problem entries of a case.
const (
	KindFailure = "failure"
	KindError   = "error"
)

// Message is a skipped, failure or error element.
type Message struct {
	Kind        string  `xml:"-"`
	MessageAttr *string `xml:"message,attr"`
	Type        string  `xml:"type,attr"`
	Body        string  `xml:",chardata"`
}

// UnmarshalXML decodes a testcase element, keeping failure and error
// children interleaved as they appear.
func (c *Case) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		v := a.Value
		switch a.Name.Local {
		case "classname":
			c.ClassName = v
		case "name":
			c.NameAttr = &v
		case "id":
			c.IDAttr = &v
		case "time":
			c.Time = v
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := c.decodeChild(d, t); err != nil {
				return err
			}
		}
	}
}

func (c *Case) decodeChild(d *xml.Decoder, t xml.StartElement) error {
	switch t.Name.Local {
	case "system-out":
		var out string
		if err := d.DecodeElement(&out, &t); err != nil {
			return err
		}
		c.SystemOut = &out
	case "skipped":
		var m Message
		if err := d.DecodeElement(&m, &t); err != nil {
			return err
		}
		c.Skipped = &m
	case KindFailure, KindError:
		m := Message{Kind: t.Name.Local}
		if err := d.DecodeElement(&m, &t); err != nil {
			return err
		}
		c.Problems = append(c.Problems, m)
	default:
		return d.Skip()
	}
	return nil
}

// Text returns the message attribute, or the element text when the
// attribute is absent.
func (m Message) Text() string {
	if m.MessageAttr != nil {
		return *m.MessageAttr
	}
	return strings.TrimSpace(m.Body)
}

// Parse decodes an xUnit document from r.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no root element", ErrMalformed)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return decodeRoot(dec, start)
	}
}

func decodeRoot(dec *xml.Decoder, start xml.StartElement) (*Document, error) {
	switch start.Name.Local {
	case "testsuites":
		var wrapper struct {
			Suites []Suite `xml:"testsuite"`
		}
		if err := dec.DecodeElement(&wrapper, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(wrapper.Suites) == 0 {
			return nil, fmt.Errorf("%w: testsuites without testsuite", ErrMalformed)
		}
		return validate(&Document{Suites: wrapper.Suites})
	case "testsuite":
		var s Suite
		if err := dec.DecodeElement(&s, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return validate(&Document{Suites: []Suite{s}})
	}
	return nil, fmt.Errorf("%w: unexpected root <%s>", ErrMalformed, start.Name.Local)
}

// validate rejects suites whose counters are not integers, so a bad file
// fails before any launch is opened.
func validate(doc *Document) (*Document, error) {
	for _, s := range doc.Suites {
		if _, _, err := s.Counts(); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ParseFile decodes the xUnit document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Name returns @name, else @id, else "NULL".
func (s Suite) Name() string {
	switch {
	case s.NameAttr != nil:
		return *s.NameAttr
	case s.IDAttr != nil:
		return *s.IDAttr
	}
	return "NULL"
}

// Counts returns the failures and errors attributes; absent means zero.
func (s Suite) Counts() (failures, errs int, err error) {
	if failures, err = count(s.Failures); err != nil {
		return 0, 0, fmt.Errorf("%w: suite %q failures: %v", ErrMalformed, s.Name(), err)
	}
	if errs, err = count(s.Errors); err != nil {
		return 0, 0, fmt.Errorf("%w: suite %q errors: %v", ErrMalformed, s.Name(), err)
	}
	return failures, errs, nil
}

func count(attr string) (int, error) {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return 0, nil
	}
	return strconv.Atoi(attr)
}

// Name returns @name, else @id. ok is false when the case has neither.
func (c Case) Name() (name string, ok bool) {
	switch {
	case c.NameAttr != nil:
		return *c.NameAttr, true
	case c.IDAttr != nil:
		return *c.IDAttr, true
	}
	return "", false
}
