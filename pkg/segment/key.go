package segment

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key names a segment across processes. It is a System V IPC key.
type Key int32

// String formats the key the way ipcs prints it.
func (k Key) String() string {
	return fmt.Sprintf("0x%08x", uint32(k))
}

// DeriveKey computes a stable key from a seed and a salt. Changing the salt
// moves to a fresh segment without touching the old one. The result is never
// 0 (IPC_PRIVATE) or -1.
func DeriveKey(seed string, salt uint32) Key {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed+"/"+strconv.FormatUint(uint64(salt), 10)))
	for i := 0; i+4 <= len(id); i += 4 {
		k := Key(int32(binary.BigEndian.Uint32(id[i : i+4])))
		if k != 0 && k != -1 {
			return k
		}
	}
	return 1
}

// ParseKey accepts a hex key ("0x1a2b3c4d") or a signed decimal one.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("segment: invalid key %q: %w", s, err)
		}
		return Key(int32(uint32(v))), nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("segment: invalid key %q: %w", s, err)
	}
	return Key(v), nil
}
