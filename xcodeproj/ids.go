package xcodeproj

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs used for object IDs.
var idNamespace = uuid.MustParse("6f1d7a3e-2b4c-5d8e-9f0a-1b2c3d4e5f60")

// NewID derives a 24 character uppercase hexadecimal object ID from seed.
// The same seed always yields the same ID so that two scaffold runs on
// identical descriptors produce identical output. An ID already present in
// the descriptor is never returned; the seed is extended until it is free.
func (p *Project) NewID(seed string) string {
	for n := 0; ; n++ {
		s := seed
		if n > 0 {
			s = fmt.Sprintf("%s#%d", seed, n)
		}
		u := uuid.NewSHA1(idNamespace, []byte(s))
		id := strings.ToUpper(hex.EncodeToString(u[:]))[:24]
		if !p.hasID(id) {
			return id
		}
	}
}
