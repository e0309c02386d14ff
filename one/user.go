package one

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"one-rpc/message"
	"one-rpc/protocol"
)

// LoginToken calls one.user.login. Pass NewToken to have a token created,
// NoTTL and NoGroup for the server defaults.
func (c *Client) LoginToken(ctx context.Context, cred, username, token string, ttl, egid int) (string, error) {
	const op = "LoginToken"
	if err := checkCred(op, cred); err != nil {
		return "", err
	}
	if username == "" {
		return "", invalid(op, "username", "empty")
	}

	p, err := c.call(ctx, MethodUserLogin, cred,
		message.Str(username),
		message.Str(token),
		message.Int(int64(ttl)),
		message.Int(int64(egid)))
	if err != nil {
		return "", err
	}
	token, err = p.AsString()
	if err != nil {
		return "", protocol.WithMethod(err, MethodUserLogin)
	}
	return token, nil
}

// Login signs a user in with a password. An unexpired login token on the
// user is reused; otherwise, or when the control plane no longer accepts it,
// a new one is requested. The returned session was fetched with the token,
// so the token is known to work.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" {
		return nil, invalid("Login", "username", "empty")
	}
	cred := Credential(username, password)

	u, err := c.UserInfo(ctx, cred, Self)
	if err != nil {
		return nil, err
	}

	if token := u.Token(time.Now()); token != "" {
		s, err := c.session(ctx, username, token)
		if err == nil || !isAuthFailure(err) {
			return s, err
		}
	}

	token, err := c.LoginToken(ctx, cred, username, NewToken, NoTTL, NoGroup)
	if err != nil {
		return nil, err
	}
	return c.session(ctx, username, token)
}

func (c *Client) session(ctx context.Context, username, token string) (*Session, error) {
	u, err := c.UserInfo(ctx, Credential(username, token), Self)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:   u.ID,
		Username: u.Name,
		Token:    token,
		User:     u,
	}, nil
}

func isAuthFailure(err error) bool {
	var pe *protocol.ProtocolError
	return errors.As(err, &pe) && pe.Code == protocol.CodeAuthentication
}

// UserInfo calls one.user.info. Pass Self for the caller's own user.
func (c *Client) UserInfo(ctx context.Context, cred string, id int) (*User, error) {
	const op = "UserInfo"
	if err := checkCred(op, cred); err != nil {
		return nil, err
	}
	if id != Self {
		if err := checkID(op, "user id", id); err != nil {
			return nil, err
		}
	}

	var u User
	doc, err := c.callDoc(ctx, MethodUserInfo, cred, &u, message.Int(int64(id)))
	if err != nil {
		return nil, err
	}
	u.Doc = doc
	return &u, nil
}

// UpdateUser calls one.user.update with a template string in the control
// plane's ATTR="value" syntax. mode is UpdateReplace or UpdateMerge.
func (c *Client) UpdateUser(ctx context.Context, cred string, id int, template string, mode int) (int, error) {
	const op = "UpdateUser"
	if err := checkCred(op, cred); err != nil {
		return 0, err
	}
	if err := checkID(op, "user id", id); err != nil {
		return 0, err
	}
	if mode != UpdateReplace && mode != UpdateMerge {
		return 0, invalid(op, "mode", fmt.Sprintf("%d is not replace or merge", mode))
	}

	return c.callInt(ctx, MethodUserUpdate, cred,
		message.Int(int64(id)),
		message.Str(template),
		message.Int(int64(mode)))
}

// UpdateSSHKey stores key as the caller's SSH_PUBLIC_KEY. The key is not
// parsed here; callers should run sshkey.Validate first.
func (c *Client) UpdateSSHKey(ctx context.Context, cred, key string) error {
	const op = "UpdateSSHKey"
	if err := checkCred(op, cred); err != nil {
		return err
	}
	if strings.ContainsAny(key, "\"\n") {
		return invalid(op, "key", "contains a quote or newline")
	}

	u, err := c.UserInfo(ctx, cred, Self)
	if err != nil {
		return err
	}
	_, err = c.UpdateUser(ctx, cred, u.ID, `SSH_PUBLIC_KEY="`+key+`"`, UpdateReplace)
	return err
}

// SSHKey returns the caller's SSH_PUBLIC_KEY, or "" if none is set.
func (c *Client) SSHKey(ctx context.Context, cred string) (string, error) {
	u, err := c.UserInfo(ctx, cred, Self)
	if err != nil {
		return "", err
	}
	return u.Template.SSHPublicKey, nil
}
