package props

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// Propstat groups properties that share one status within a response.
type Propstat struct {
	Status int
	Props  []Property
}

// Response is one href entry in a multistatus body.
type Response struct {
	Href      string
	Propstats []Propstat
	Status    int // used instead of propstats for status-only responses
}

// Multistatus accumulates responses for a 207 body.
type Multistatus struct {
	Responses []Response
}

// Add appends a response.
func (m *Multistatus) Add(r Response) {
	m.Responses = append(m.Responses, r)
}

type propWrapXML struct {
	Props []Property
}

type propstatXML struct {
	Prop   propWrapXML `xml:"D:prop"`
	Status string      `xml:"D:status"`
}

type responseXML struct {
	Href      string        `xml:"D:href"`
	Propstats []propstatXML `xml:"D:propstat,omitempty"`
	Status    string        `xml:"D:status,omitempty"`
}

type multistatusXML struct {
	XMLName   xml.Name      `xml:"D:multistatus"`
	XMLNS     string        `xml:"xmlns:D,attr"`
	Responses []responseXML `xml:"D:response"`
}

func statusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// MarshalXML emits the property elements by their own XML names.
func (p propWrapXML) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, prop := range p.Props {
		if err := e.Encode(prop); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Render serializes the multistatus body with the XML declaration.
func (m *Multistatus) Render() ([]byte, error) {
	out := multistatusXML{XMLNS: NS}
	for _, r := range m.Responses {
		rx := responseXML{Href: r.Href}
		if r.Status != 0 {
			rx.Status = statusLine(r.Status)
		}
		for _, ps := range r.Propstats {
			if len(ps.Props) == 0 {
				continue
			}
			rx.Propstats = append(rx.Propstats, propstatXML{
				Prop:   propWrapXML{Props: ps.Props},
				Status: statusLine(ps.Status),
			})
		}
		out.Responses = append(out.Responses, rx)
	}

	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// RenderPrecondition builds a DAV:error body naming a failed precondition,
// e.g. propfind-finite-depth or lock-token-matches-request-uri.
func RenderPrecondition(local string) []byte {
	return []byte(xml.Header + `<D:error xmlns:D="DAV:"><D:` + local + `/></D:error>`)
}
