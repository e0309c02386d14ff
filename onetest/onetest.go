// Package onetest is an in-memory control plane speaking the real wire
// format. Tests and one-mock use it in place of a live frontend.
//
// It models users with passwords, login tokens and a flat template,
// VM templates, and VMs created from them. Every document it returns is the
// same shape the real control plane sends, trimmed to the fields modelled.
package onetest

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"one-rpc/message"
	"one-rpc/protocol"
	"one-rpc/server"
)

const (
	groupID   = 1
	groupName = "users"

	defaultTokenTTL = 10 * time.Hour
)

type user struct {
	id       int
	name     string
	password string
	tokens   []tokenDoc
	template attrs
}

type vmTemplate struct {
	id      int
	owner   int
	name    string
	regTime int64
	attrs   attrs
}

type vm struct {
	id       int
	owner    int
	name     string
	state    int
	stime    int64
	template int
}

// ControlPlane is safe for concurrent use.
type ControlPlane struct {
	mu        sync.Mutex
	users     map[int]*user
	templates map[int]*vmTemplate
	vms       map[int]*vm
	nextID    map[string]int
	now       func() time.Time
}

func New() *ControlPlane {
	return &ControlPlane{
		users:     make(map[int]*user),
		templates: make(map[int]*vmTemplate),
		vms:       make(map[int]*vm),
		nextID:    make(map[string]int),
		now:       time.Now,
	}
}

func (cp *ControlPlane) id(kind string) int {
	n := cp.nextID[kind]
	cp.nextID[kind] = n + 1
	return n
}

// AddUser creates a user and returns its id.
func (cp *ControlPlane) AddUser(name, password string) int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	u := &user{id: cp.id("user"), name: name, password: password, template: attrs{}}
	cp.users[u.id] = u
	return u.id
}

// AddLoginToken gives a user an existing token, as if it had logged in before.
func (cp *ControlPlane) AddLoginToken(userID int, token string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	u, ok := cp.users[userID]
	if !ok {
		return
	}
	u.tokens = append(u.tokens, tokenDoc{
		Token:          token,
		ExpirationTime: cp.now().Add(defaultTokenTTL).Unix(),
		EGID:           -1,
	})
}

// AddTemplate creates a VM template owned by user 0 (oneadmin).
func (cp *ControlPlane) AddTemplate(name, cpu, memory string) int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	t := &vmTemplate{
		id:      cp.id("template"),
		name:    name,
		regTime: cp.now().Unix(),
		attrs:   attrs{"CPU": cpu, "VCPU": cpu, "MEMORY": memory, "DESCRIPTION": name},
	}
	cp.templates[t.id] = t
	return t.id
}

// SetClock replaces the clock used for token expiry and timestamps.
func (cp *ControlPlane) SetClock(now func() time.Time) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.now = now
}

// SetVMState moves a VM to state, as the scheduler would.
func (cp *ControlPlane) SetVMState(id, state int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if v, ok := cp.vms[id]; ok {
		v.state = state
	}
}

// Server returns an XML-RPC server with every method registered.
func (cp *ControlPlane) Server(opts ...server.Option) *server.Server {
	s := server.NewServer(opts...)
	cp.Install(s)
	return s
}

// Install registers the control-plane methods on s.
func (cp *ControlPlane) Install(s *server.Server) {
	s.Register("one.user.login", cp.userLogin)
	s.Register("one.user.info", cp.userInfo)
	s.Register("one.user.update", cp.userUpdate)
	s.Register("one.template.instantiate", cp.templateInstantiate)
	s.Register("one.template.info", cp.templateInfo)
	s.Register("one.templatepool.info", cp.templatePoolInfo)
	s.Register("one.vm.info", cp.vmInfo)
	s.Register("one.vmpool.info", cp.vmPoolInfo)
}

// Start serves cp over HTTP for the duration of the test and returns the
// endpoint URL.
func Start(tb testing.TB, cp *ControlPlane, opts ...server.Option) string {
	tb.Helper()
	ts := httptest.NewServer(cp.Server(opts...))
	tb.Cleanup(ts.Close)
	return ts.URL + "/RPC2"
}

func failure(method string, code int64, format string, args ...any) error {
	return &protocol.ProtocolError{Message: fmt.Sprintf("[%s] ", method) + fmt.Sprintf(format, args...), Code: code}
}

// authenticate checks the credential param against passwords and unexpired
// tokens. cp.mu must be held.
func (cp *ControlPlane) authenticate(call *message.MethodCall) (*user, error) {
	cred, err := server.StringParam(call, 0)
	if err != nil {
		return nil, err
	}
	name, secret, _ := strings.Cut(cred, ":")
	now := cp.now().Unix()
	for _, u := range cp.users {
		if u.name != name {
			continue
		}
		if secret != "" && secret == u.password {
			return u, nil
		}
		for _, t := range u.tokens {
			if t.Token == secret && t.ExpirationTime > now {
				return u, nil
			}
		}
	}
	return nil, failure(call.MethodName, protocol.CodeAuthentication, "User couldn't be authenticated, aborting call.")
}

func (cp *ControlPlane) userLogin(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 5); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	u, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	name, err := server.StringParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	token, err := server.StringParam(call, 2)
	if err != nil {
		return protocol.Payload{}, err
	}
	ttl, err := server.IntParam(call, 3)
	if err != nil {
		return protocol.Payload{}, err
	}
	egid, err := server.IntParam(call, 4)
	if err != nil {
		return protocol.Payload{}, err
	}
	if name != u.name {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeAuthorization, "Not authorized to perform MANAGE USER [%s].", name)
	}

	if token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	expiry := defaultTokenTTL
	if ttl > 0 {
		expiry = time.Duration(ttl) * time.Second
	}
	u.tokens = append(u.tokens, tokenDoc{
		Token:          token,
		ExpirationTime: cp.now().Add(expiry).Unix(),
		EGID:           int(egid),
	})
	return protocol.StringPayload(token), nil
}

func (cp *ControlPlane) userInfo(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 2); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	caller, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	id, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	u := caller
	if id != -1 {
		var ok bool
		if u, ok = cp.users[int(id)]; !ok {
			return protocol.Payload{}, failure(call.MethodName, protocol.CodeNoExists, "Error getting user [%d].", id)
		}
		if u.id != caller.id {
			return protocol.Payload{}, failure(call.MethodName, protocol.CodeAuthorization, "Not authorized to perform INFO USER [%d].", id)
		}
	}

	doc, err := render(userDoc{
		ID:         u.id,
		GID:        groupID,
		GName:      groupName,
		Name:       u.name,
		AuthDriver: "core",
		Enabled:    1,
		Tokens:     u.tokens,
		Template:   u.template,
	})
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.StringPayload(doc), nil
}

func (cp *ControlPlane) userUpdate(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 4); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	caller, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	id, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	tmpl, err := server.StringParam(call, 2)
	if err != nil {
		return protocol.Payload{}, err
	}
	mode, err := server.IntParam(call, 3)
	if err != nil {
		return protocol.Payload{}, err
	}
	if int(id) != caller.id {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeAuthorization, "Not authorized to perform MANAGE USER [%d].", id)
	}

	parsed, err := ParseTemplate(tmpl)
	if err != nil {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeAction, "Error parsing user template: %v", err)
	}
	if mode == 0 {
		caller.template = attrs{}
	}
	for k, v := range parsed {
		caller.template[k] = v
	}
	return protocol.IntPayload(int64(caller.id)), nil
}

func (cp *ControlPlane) templateInstantiate(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 6); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	caller, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	id, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	name, err := server.StringParam(call, 2)
	if err != nil {
		return protocol.Payload{}, err
	}
	hold, err := server.BoolParam(call, 3)
	if err != nil {
		return protocol.Payload{}, err
	}
	if _, err := server.StringParam(call, 4); err != nil {
		return protocol.Payload{}, err
	}
	if _, err := server.BoolParam(call, 5); err != nil {
		return protocol.Payload{}, err
	}

	if _, ok := cp.templates[int(id)]; !ok {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeNoExists, "Error getting template [%d].", id)
	}
	state := 1 // PENDING
	if hold {
		state = 2 // HOLD
	}
	v := &vm{
		id:       cp.id("vm"),
		owner:    caller.id,
		name:     name,
		state:    state,
		stime:    cp.now().Unix(),
		template: int(id),
	}
	cp.vms[v.id] = v
	return protocol.IntPayload(int64(v.id)), nil
}

func (cp *ControlPlane) templateDoc(t *vmTemplate) templateDoc {
	owner := cp.users[t.owner]
	uname := "oneadmin"
	if owner != nil {
		uname = owner.name
	}
	return templateDoc{
		ID:       t.id,
		UID:      t.owner,
		GID:      0,
		UName:    uname,
		GName:    "oneadmin",
		Name:     t.name,
		RegTime:  t.regTime,
		Template: t.attrs,
	}
}

func (cp *ControlPlane) templateInfo(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 2); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if _, err := cp.authenticate(call); err != nil {
		return protocol.Payload{}, err
	}
	id, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	t, ok := cp.templates[int(id)]
	if !ok {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeNoExists, "Error getting template [%d].", id)
	}
	doc, err := render(cp.templateDoc(t))
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.StringPayload(doc), nil
}

func (cp *ControlPlane) templatePoolInfo(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 4); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if _, err := cp.authenticate(call); err != nil {
		return protocol.Payload{}, err
	}
	for i := 1; i <= 3; i++ {
		if _, err := server.IntParam(call, i); err != nil {
			return protocol.Payload{}, err
		}
	}

	pool := templatePoolDoc{}
	for _, id := range sortedKeys(cp.templates) {
		pool.Templates = append(pool.Templates, cp.templateDoc(cp.templates[id]))
	}
	doc, err := render(pool)
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.StringPayload(doc), nil
}

func (cp *ControlPlane) vmDoc(v *vm) vmDoc {
	owner := cp.users[v.owner]
	t := cp.templates[v.template]
	return vmDoc{
		ID:    v.id,
		UID:   owner.id,
		GID:   groupID,
		UName: owner.name,
		GName: groupName,
		Name:  v.name,
		State: v.state,
		STime: v.stime,
		Template: vmTemplateDoc{
			TemplateID: t.id,
			CPU:        t.attrs["CPU"],
			VCPU:       t.attrs["VCPU"],
			Memory:     t.attrs["MEMORY"],
			NICs: []nicDoc{{
				Network: "lab",
				IP:      fmt.Sprintf("10.0.%d.%d", v.id/250, v.id%250+2),
				MAC:     fmt.Sprintf("02:00:0a:00:%02x:%02x", v.id/250, v.id%250+2),
			}},
		},
	}
}

func (cp *ControlPlane) vmInfo(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 2); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	caller, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	id, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	v, ok := cp.vms[int(id)]
	if !ok {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeNoExists, "Error getting virtual machine [%d].", id)
	}
	if v.owner != caller.id {
		return protocol.Payload{}, failure(call.MethodName, protocol.CodeAuthorization, "Not authorized to perform USE VM [%d].", id)
	}
	doc, err := render(cp.vmDoc(v))
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.StringPayload(doc), nil
}

func (cp *ControlPlane) vmPoolInfo(_ context.Context, call *message.MethodCall) (protocol.Payload, error) {
	if err := server.CheckArity(call, 5); err != nil {
		return protocol.Payload{}, err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()

	caller, err := cp.authenticate(call)
	if err != nil {
		return protocol.Payload{}, err
	}
	filter, err := server.IntParam(call, 1)
	if err != nil {
		return protocol.Payload{}, err
	}
	for i := 2; i <= 3; i++ {
		if _, err := server.IntParam(call, i); err != nil {
			return protocol.Payload{}, err
		}
	}
	state, err := server.IntParam(call, 4)
	if err != nil {
		return protocol.Payload{}, err
	}

	pool := vmPoolDoc{}
	for _, id := range sortedKeys(cp.vms) {
		v := cp.vms[id]
		switch {
		case filter >= 0 && v.owner != int(filter):
			continue
		case filter < 0 && filter != -2 && v.owner != caller.id:
			continue
		case state == -1 && v.state == 6: // DONE
			continue
		case state >= 0 && v.state != int(state):
			continue
		}
		pool.VMs = append(pool.VMs, cp.vmDoc(v))
	}
	doc, err := render(pool)
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.StringPayload(doc), nil
}
