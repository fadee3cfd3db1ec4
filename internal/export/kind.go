package export

import (
	"fmt"
	"strings"

	"vnpipe/internal/services"
)

// Kind enumerates the supported export formats.
type Kind int

const (
	KindFBX Kind = iota + 1
	KindAlembic
	KindVDB
	KindUSD
)

// Target describes how a Kind is produced in the host.
type Target struct {
	Token    string
	Label    string
	NodeType string
	// Parm is the single output parameter. Empty for kinds that take a
	// basename/directory pair instead.
	Parm       string
	BaseParm   string
	DirParm    string
	Extension  string
	ButtonParm string
}

var targets = map[Kind]Target{
	KindFBX:     {Token: "fbx", Label: "FBX", NodeType: "rop_fbx", Parm: "sopoutput", Extension: ".fbx", ButtonParm: "execute"},
	KindAlembic: {Token: "abc", Label: "Alembic", NodeType: "rop_alembic", Parm: "filename", Extension: ".abc", ButtonParm: "execute"},
	KindVDB:     {Token: "vdb", Label: "VDB", NodeType: "filecache::2.0", BaseParm: "basename", DirParm: "basedir", ButtonParm: "execute"},
	KindUSD:     {Token: "usd", Label: "USD", NodeType: "usdexport", Parm: "lopoutput", Extension: ".usd", ButtonParm: "execute"},
}

// Kinds lists every supported kind in table order.
func Kinds() []Kind {
	return []Kind{KindFBX, KindAlembic, KindVDB, KindUSD}
}

// ParseKind accepts a token with or without a leading dot, in any case.
func ParseKind(token string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "."))
	for _, kind := range Kinds() {
		if targets[kind].Token == normalized {
			return kind, nil
		}
	}
	return 0, services.Wrap(services.ErrValidation, "export", "parse kind",
		fmt.Sprintf("unknown export kind %q (want one of fbx, abc, vdb, usd)", token), nil)
}

// Target returns the static mapping for k.
func (k Kind) Target() (Target, bool) {
	t, ok := targets[k]
	return t, ok
}

func (k Kind) String() string {
	if t, ok := targets[k]; ok {
		return t.Token
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind token.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := targets[k]; !ok {
		return nil, fmt.Errorf("invalid export kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind token.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
