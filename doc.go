// Package dh describes a decentralized, content-addressable file exchange.
//
// A piece of content is named by the sha256 hash of its bytes,
// plus a filename extension:
// <hash>.<extension>.
// This name is called an ID.
//
// Peers are plain HTTP servers that publish content at a conventional path,
// {peer}/data/{hash}/{hash}.{extension}.
// Nothing a peer says is trusted.
// Content fetched from a peer is hashed again,
// and only if the hash matches the ID it was requested under
// is it stored locally (see Verify and Store),
// and the peer recorded as a host of that hash (see HostStore).
//
// The engine subpackage scans a list of peers for a list of IDs.
// The ledger subpackage is an append-only, hash-linked chain of blocks
// notarizing claims of ownership of a hash.
//
// Because an ID's hash is computed from content,
// two pieces of content with the same hash are treated as identical,
// and a Store keeps at most one copy of each.
package dh
