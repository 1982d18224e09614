package props

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// propNames collects the names of the child elements of a <prop> element,
// skipping any nested content.
type propNames []xml.Name

func (p *propNames) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		t, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrMalformedBody
			}
			return err
		}
		switch e := t.(type) {
		case xml.EndElement:
			if e.Name == start.Name {
				return nil
			}
		case xml.StartElement:
			*p = append(*p, e.Name)
			if err := d.Skip(); err != nil {
				return err
			}
		}
	}
}

type propfindXML struct {
	XMLName  xml.Name  `xml:"DAV: propfind"`
	Allprop  *struct{} `xml:"DAV: allprop"`
	Propname *struct{} `xml:"DAV: propname"`
	Prop     propNames `xml:"DAV: prop"`
	Include  propNames `xml:"DAV: include"`
}

// ParsePropfind parses a PROPFIND request body. An empty body means allprop,
// per RFC 4918 9.1.
func ParsePropfind(body []byte) (*Propfind, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Propfind{Mode: ModeAllprop}, nil
	}

	var pf propfindXML
	if err := xml.Unmarshal(body, &pf); err != nil {
		return nil, ErrMalformedBody
	}

	switch {
	case pf.Propname != nil:
		if pf.Allprop != nil || len(pf.Prop) > 0 {
			return nil, ErrMalformedBody
		}
		return &Propfind{Mode: ModePropname}, nil
	case pf.Allprop != nil:
		if len(pf.Prop) > 0 {
			return nil, ErrMalformedBody
		}
		// include extends allprop; the names merge into the request.
		return &Propfind{Mode: ModeAllprop, Names: pf.Include}, nil
	case len(pf.Prop) > 0:
		return &Propfind{Mode: ModeProp, Names: pf.Prop}, nil
	default:
		return nil, ErrMalformedBody
	}
}

type propContainerXML struct {
	Props []Property `xml:",any"`
}

type setRemoveXML struct {
	XMLName xml.Name
	Prop    propContainerXML `xml:"DAV: prop"`
}

type propertyupdateXML struct {
	XMLName xml.Name       `xml:"DAV: propertyupdate"`
	Ops     []setRemoveXML `xml:",any"`
}

// ParsePropertyUpdate parses a PROPPATCH request body into ordered patches.
// Order matters: RFC 4918 requires instructions to apply in document order.
func ParsePropertyUpdate(body []byte) ([]Patch, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNotPropupdate
	}

	var pu propertyupdateXML
	if err := xml.Unmarshal(body, &pu); err != nil {
		return nil, ErrMalformedBody
	}

	patches := make([]Patch, 0, len(pu.Ops))
	for _, op := range pu.Ops {
		if op.XMLName.Space != NS {
			return nil, ErrMalformedBody
		}
		switch op.XMLName.Local {
		case "set":
			patches = append(patches, Patch{Props: op.Prop.Props})
		case "remove":
			patches = append(patches, Patch{Remove: true, Props: op.Prop.Props})
		default:
			return nil, ErrMalformedBody
		}
	}
	if len(patches) == 0 {
		return nil, ErrNotPropupdate
	}
	return patches, nil
}
