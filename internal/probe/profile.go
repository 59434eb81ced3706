package probe

import (
	"strings"

	"github.com/pitprobe/pitprobe/internal/probe/protocol"
)

// VariantKind selects the protocol family implementation for a profile.
type VariantKind int

const (
	// KindNotifyText pushes ASCII-decimal readings on value change.
	KindNotifyText VariantKind = iota
	// KindPolled answers a 9-byte framed command with a framed reply.
	KindPolled
	// KindWakePolled is KindPolled preceded by a zero-byte wake signal.
	KindWakePolled
	// KindBlock wraps commands in an envelope fragmented into 20-byte packets.
	KindBlock
)

// Profile describes how to talk to one vendor's device family. Profiles are
// fixed at build time and never mutated.
type Profile struct {
	Key          string
	NamePrefixes []string

	ServiceUUID    string
	NotifyCharUUID string
	WriteCharUUID  string
	// Alternate characteristic UUIDs seen on older firmware revisions,
	// tried after the primary UUID during discovery.
	AltNotifyUUIDs []string
	AltWriteUUIDs  []string

	Kind VariantKind
	// CRCInit is the CRC-16 initial register for framed families. The TR
	// lines run from zero, the SK line from all ones; the value is fixed
	// per family, never global.
	CRCInit uint16
	// RequiresPolling is true when the probe only answers explicit commands.
	RequiresPolling bool
}

// Catalog is the ordered vendor profile table. Order is the matching
// tie-break: a longer, more specific prefix (TR45) must be listed before the
// generic one that would shadow it (TR4).
var Catalog = []Profile{
	{
		Key:            "anritsu",
		NamePrefixes:   []string{"AnritsuM-", "AnritsuN-"},
		ServiceUUID:    "0000fff0-0000-1000-8000-00805f9b34fb",
		NotifyCharUUID: "0000fff1-0000-1000-8000-00805f9b34fb",
		WriteCharUUID:  "0000fff2-0000-1000-8000-00805f9b34fb",
		Kind:           KindNotifyText,
	},
	{
		Key:             "tr45",
		NamePrefixes:    []string{"TR45"},
		ServiceUUID:     "0000ffe0-0000-1000-8000-00805f9b34fb",
		NotifyCharUUID:  "0000ffe4-0000-1000-8000-00805f9b34fb",
		WriteCharUUID:   "0000ffe9-0000-1000-8000-00805f9b34fb",
		AltNotifyUUIDs:  []string{"0000ffe3-0000-1000-8000-00805f9b34fb"},
		Kind:            KindWakePolled,
		CRCInit:         protocol.CRCInitZero,
		RequiresPolling: true,
	},
	{
		Key:             "tr4",
		NamePrefixes:    []string{"TR4"},
		ServiceUUID:     "0000ffe0-0000-1000-8000-00805f9b34fb",
		NotifyCharUUID:  "0000ffe4-0000-1000-8000-00805f9b34fb",
		WriteCharUUID:   "0000ffe9-0000-1000-8000-00805f9b34fb",
		Kind:            KindPolled,
		CRCInit:         protocol.CRCInitZero,
		RequiresPolling: true,
	},
	{
		Key:             "sk270",
		NamePrefixes:    []string{"SK-"},
		ServiceUUID:     "0000fee0-0000-1000-8000-00805f9b34fb",
		NotifyCharUUID:  "0000fee2-0000-1000-8000-00805f9b34fb",
		WriteCharUUID:   "0000fee1-0000-1000-8000-00805f9b34fb",
		AltWriteUUIDs:   []string{"0000fee3-0000-1000-8000-00805f9b34fb"},
		Kind:            KindBlock,
		CRCInit:         protocol.CRCInitAllOnes,
		RequiresPolling: true,
	},
}

// MatchProfile resolves an advertised name against the catalog. The first
// entry owning a matching prefix wins. Advertisements that match nothing are
// ignored entirely by the callers.
func MatchProfile(advertisedName string) (*Profile, bool) {
	return matchProfileIn(Catalog, advertisedName)
}

func matchProfileIn(catalog []Profile, advertisedName string) (*Profile, bool) {
	for i := range catalog {
		for _, prefix := range catalog[i].NamePrefixes {
			if strings.HasPrefix(advertisedName, prefix) {
				return &catalog[i], true
			}
		}
	}
	return nil, false
}
