package subscription

const (
	TypeShadowsocks = "shadowsocks"
	TypeVMess       = "vmess"
)

// canonicalTypes maps link schemes to sing-box outbound types.
var canonicalTypes = map[string]string{
	"ss":    TypeShadowsocks,
	"vmess": TypeVMess,
}

func canonicalType(scheme string) string {
	if t, ok := canonicalTypes[scheme]; ok {
		return t
	}
	return scheme
}

// Outbound is a parsed proxy link ready to be marshalled into the
// outbounds array of a sing-box config.
type Outbound interface {
	Tag() string
	Type() string
}

type ShadowsocksOutbound struct {
	OutboundType string `json:"type"`
	OutboundTag  string `json:"tag"`
	Server       string `json:"server"`
	ServerPort   int    `json:"server_port"`
	Method       string `json:"method"`
	Password     string `json:"password"`
	Plugin       string `json:"plugin,omitempty"`
	PluginOpts   string `json:"plugin_opts,omitempty"`
}

func (o *ShadowsocksOutbound) Tag() string  { return o.OutboundTag }
func (o *ShadowsocksOutbound) Type() string { return o.OutboundType }

type V2RayTransport struct {
	Type    string            `json:"type"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}

type VMessOutbound struct {
	OutboundType string          `json:"type"`
	OutboundTag  string          `json:"tag"`
	Server       string          `json:"server"`
	ServerPort   int             `json:"server_port"`
	UUID         string          `json:"uuid"`
	AlterID      int             `json:"alter_id"`
	Security     string          `json:"security"`
	Network      string          `json:"network"`
	Transport    *V2RayTransport `json:"transport,omitempty"`
}

func (o *VMessOutbound) Tag() string  { return o.OutboundTag }
func (o *VMessOutbound) Type() string { return o.OutboundType }
