package onetest

import (
	"encoding/xml"
	"sort"
)

// attrs renders a flat template as <KEY>value</KEY> children in key order.
type attrs map[string]string

func (a attrs) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.EncodeElement(a[k], xml.StartElement{Name: xml.Name{Local: k}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type userDoc struct {
	XMLName    xml.Name   `xml:"USER"`
	ID         int        `xml:"ID"`
	GID        int        `xml:"GID"`
	GName      string     `xml:"GNAME"`
	Name       string     `xml:"NAME"`
	AuthDriver string     `xml:"AUTH_DRIVER"`
	Enabled    int        `xml:"ENABLED"`
	Tokens     []tokenDoc `xml:"LOGIN_TOKEN"`
	Template   attrs      `xml:"TEMPLATE"`
}

type tokenDoc struct {
	Token          string `xml:"TOKEN"`
	ExpirationTime int64  `xml:"EXPIRATION_TIME"`
	EGID           int    `xml:"EGID"`
}

type vmDoc struct {
	XMLName  xml.Name      `xml:"VM"`
	ID       int           `xml:"ID"`
	UID      int           `xml:"UID"`
	GID      int           `xml:"GID"`
	UName    string        `xml:"UNAME"`
	GName    string        `xml:"GNAME"`
	Name     string        `xml:"NAME"`
	State    int           `xml:"STATE"`
	LCMState int           `xml:"LCM_STATE"`
	STime    int64         `xml:"STIME"`
	ETime    int64         `xml:"ETIME"`
	Template vmTemplateDoc `xml:"TEMPLATE"`
}

type vmTemplateDoc struct {
	TemplateID int      `xml:"TEMPLATE_ID"`
	CPU        string   `xml:"CPU"`
	VCPU       string   `xml:"VCPU"`
	Memory     string   `xml:"MEMORY"`
	NICs       []nicDoc `xml:"NIC"`
}

type nicDoc struct {
	NICID   int    `xml:"NIC_ID"`
	Network string `xml:"NETWORK"`
	IP      string `xml:"IP"`
	MAC     string `xml:"MAC"`
}

type vmPoolDoc struct {
	XMLName xml.Name `xml:"VM_POOL"`
	VMs     []vmDoc  `xml:"VM"`
}

type templateDoc struct {
	XMLName  xml.Name `xml:"VMTEMPLATE"`
	ID       int      `xml:"ID"`
	UID      int      `xml:"UID"`
	GID      int      `xml:"GID"`
	UName    string   `xml:"UNAME"`
	GName    string   `xml:"GNAME"`
	Name     string   `xml:"NAME"`
	RegTime  int64    `xml:"REGTIME"`
	Template attrs    `xml:"TEMPLATE"`
}

type templatePoolDoc struct {
	XMLName   xml.Name      `xml:"VMTEMPLATE_POOL"`
	Templates []templateDoc `xml:"VMTEMPLATE"`
}

func render(v any) (string, error) {
	b, err := xml.Marshal(v)
	return string(b), err
}
