package wire

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/novade/compositor-core/internal/ids"
)

// Conn is one accepted client connection: the raw unix socket plus the
// peer credentials read from it at accept time, the mechanism §4's
// per-connection ClientId attribution is grounded on (SO_PEERCRED gives
// the kernel's own view of the connecting process, not a
// client-asserted identity).
type Conn struct {
	*net.UnixConn

	PID int32
	UID uint32
	GID uint32
}

// Accept wraps ln.Accept and resolves the peer's credentials via
// SO_PEERCRED before handing back a Conn, so a caller can attribute every
// message on it to a ClientId immediately.
func Accept(ln *Listener) (*Conn, error) {
	raw, err := ln.Listener.Accept()
	if err != nil {
		return nil, err
	}
	uconn, ok := raw.(*net.UnixConn)
	if !ok {
		raw.Close()
		return nil, fmt.Errorf("wire: accepted connection is not a unix socket")
	}

	sysconn, err := uconn.SyscallConn()
	if err != nil {
		uconn.Close()
		return nil, err
	}
	var cred *unix.Ucred
	var credErr error
	err = sysconn.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		uconn.Close()
		return nil, err
	}
	if credErr != nil {
		uconn.Close()
		return nil, fmt.Errorf("wire: read peer credentials: %w", credErr)
	}

	return &Conn{UnixConn: uconn, PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}, nil
}

// ClientKey is the map key correlating a Conn to the ids.ClientId minted
// for it: the peer's pid and uid. Connections from the same process share
// a key, and so does a later process of the same user that reuses an
// exited process's pid.
type ClientKey struct {
	PID int32
	UID uint32
}

// Key returns c's ClientKey.
func (c *Conn) Key() ClientKey { return ClientKey{PID: c.PID, UID: c.UID} }

// ClientTable maps accepted connections to the ClientId the buffer
// registry and surface engine key their ownership on (§4.1, §4.2).
type ClientTable struct {
	alloc *ids.Allocator[ids.ClientMarker]
	byKey map[ClientKey]ids.ClientId
}

// NewClientTable creates an empty client table.
func NewClientTable() *ClientTable {
	return &ClientTable{
		alloc: ids.NewAllocator[ids.ClientMarker](),
		byKey: make(map[ClientKey]ids.ClientId),
	}
}

// Register mints (or returns the existing) ClientId for c's connection.
func (t *ClientTable) Register(c *Conn) ids.ClientId {
	key := c.Key()
	if id, ok := t.byKey[key]; ok {
		return id
	}
	id := t.alloc.Alloc()
	t.byKey[key] = id
	return id
}

// Forget removes c's connection from the table, called on disconnect.
func (t *ClientTable) Forget(c *Conn) {
	delete(t.byKey, c.Key())
}
