// Package props models WebDAV properties: XML names, request body parsing
// for PROPFIND and PROPPATCH, and the 207 multistatus response writer.
//
// Properties are kept as raw inner XML so dead properties round-trip exactly
// as clients stored them. Marshaling relies on encoding/xml emitting an xmlns
// attribute per element, which every interoperable client accepts.
package props

import "encoding/xml"

// The DAV: namespace.
const NS = "DAV:"

// Live property names served by the handler.
var (
	NameDisplayName      = xml.Name{Space: NS, Local: "displayname"}
	NameCreationDate     = xml.Name{Space: NS, Local: "creationdate"}
	NameGetLastModified  = xml.Name{Space: NS, Local: "getlastmodified"}
	NameGetETag          = xml.Name{Space: NS, Local: "getetag"}
	NameGetContentLength = xml.Name{Space: NS, Local: "getcontentlength"}
	NameGetContentType   = xml.Name{Space: NS, Local: "getcontenttype"}
	NameResourceType     = xml.Name{Space: NS, Local: "resourcetype"}
	NameSupportedLock    = xml.Name{Space: NS, Local: "supportedlock"}
	NameLockDiscovery    = xml.Name{Space: NS, Local: "lockdiscovery"}
)

// LiveNames lists every live property, in the order they are reported.
var LiveNames = []xml.Name{
	NameDisplayName,
	NameCreationDate,
	NameGetLastModified,
	NameGetETag,
	NameGetContentLength,
	NameGetContentType,
	NameResourceType,
	NameSupportedLock,
	NameLockDiscovery,
}

// IsLive reports whether name is a protected live property.
func IsLive(name xml.Name) bool {
	for _, n := range LiveNames {
		if n == name {
			return true
		}
	}
	return false
}

// Property is a single WebDAV property with its raw inner XML.
type Property struct {
	XMLName  xml.Name `xml:""`
	InnerXML []byte   `xml:",innerxml"`
}

// Patch is one set or remove group from a PROPPATCH propertyupdate.
type Patch struct {
	Remove bool
	Props  []Property
}

// Propfind modes.
type PropfindMode int

const (
	ModeAllprop PropfindMode = iota
	ModePropname
	ModeProp
)

// Propfind is a parsed PROPFIND request body.
type Propfind struct {
	Mode  PropfindMode
	Names []xml.Name // requested names when Mode == ModeProp
}
