package one

import (
	"encoding/xml"
	"time"

	"one-rpc/protocol"
)

// User is the USER document of one.user.info. Only the fields callers use
// are mapped; Doc keeps the whole tree.
type User struct {
	XMLName     xml.Name     `xml:"USER"`
	ID          int          `xml:"ID"`
	GID         int          `xml:"GID"`
	GName       string       `xml:"GNAME"`
	Name        string       `xml:"NAME"`
	AuthDriver  string       `xml:"AUTH_DRIVER"`
	Enabled     int          `xml:"ENABLED"`
	LoginTokens []UserToken  `xml:"LOGIN_TOKEN"`
	Template    UserTemplate `xml:"TEMPLATE"`

	Doc *protocol.Node `xml:"-"`
}

type UserToken struct {
	Token          string `xml:"TOKEN"`
	ExpirationTime int64  `xml:"EXPIRATION_TIME"`
	EGID           int    `xml:"EGID"`
}

type UserTemplate struct {
	SSHPublicKey string `xml:"SSH_PUBLIC_KEY"`
}

// Token returns the first login token on the user still valid at now, or
// "". A non-positive expiration time never expires.
func (u *User) Token(now time.Time) string {
	for _, t := range u.LoginTokens {
		if t.Token == "" {
			continue
		}
		if t.ExpirationTime > 0 && t.ExpirationTime <= now.Unix() {
			continue
		}
		return t.Token
	}
	return ""
}

// Session is the result of Login.
type Session struct {
	UserID   int
	Username string
	Token    string
	User     *User
}

// Credential returns the token credential for follow-up calls.
func (s *Session) Credential() string {
	return Credential(s.Username, s.Token)
}

type VM struct {
	XMLName  xml.Name   `xml:"VM"`
	ID       int        `xml:"ID"`
	UID      int        `xml:"UID"`
	GID      int        `xml:"GID"`
	UName    string     `xml:"UNAME"`
	GName    string     `xml:"GNAME"`
	Name     string     `xml:"NAME"`
	State    VMState    `xml:"STATE"`
	LCMState int        `xml:"LCM_STATE"`
	STime    int64      `xml:"STIME"`
	ETime    int64      `xml:"ETIME"`
	Template VMTemplate `xml:"TEMPLATE"`

	Doc *protocol.Node `xml:"-"`
}

type VMTemplate struct {
	TemplateID string `xml:"TEMPLATE_ID"`
	CPU        string `xml:"CPU"`
	VCPU       string `xml:"VCPU"`
	Memory     string `xml:"MEMORY"`
	NICs       []NIC  `xml:"NIC"`
}

type NIC struct {
	NICID   int    `xml:"NIC_ID"`
	Network string `xml:"NETWORK"`
	IP      string `xml:"IP"`
	MAC     string `xml:"MAC"`
}

// IPs lists the addresses of all NICs that have one.
func (vm *VM) IPs() []string {
	var ips []string
	for _, n := range vm.Template.NICs {
		if n.IP != "" {
			ips = append(ips, n.IP)
		}
	}
	return ips
}

type VMPool struct {
	XMLName xml.Name `xml:"VM_POOL"`
	VMs     []VM     `xml:"VM"`
}

type Template struct {
	XMLName  xml.Name         `xml:"VMTEMPLATE"`
	ID       int              `xml:"ID"`
	UID      int              `xml:"UID"`
	GID      int              `xml:"GID"`
	UName    string           `xml:"UNAME"`
	GName    string           `xml:"GNAME"`
	Name     string           `xml:"NAME"`
	RegTime  int64            `xml:"REGTIME"`
	Template TemplateContents `xml:"TEMPLATE"`
}

type TemplateContents struct {
	Description string `xml:"DESCRIPTION"`
	CPU         string `xml:"CPU"`
	VCPU        string `xml:"VCPU"`
	Memory      string `xml:"MEMORY"`
}

type TemplatePool struct {
	XMLName   xml.Name   `xml:"VMTEMPLATE_POOL"`
	Templates []Template `xml:"VMTEMPLATE"`
}
