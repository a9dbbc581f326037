package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ============================================================================
//                              Address - 多宿主地址
// ============================================================================

// Address 逻辑对端地址
//
// Host/Port 为主地址，Secondaries 为按声明顺序排列的次地址。
// 相等性只比较主地址，次地址不参与身份判定。
type Address struct {
	// Host 主机名或 IP
	Host string `json:"host"`

	// Port 端口
	Port int `json:"port"`

	// Secondaries 次地址（多宿主），自身不再携带次地址
	Secondaries []Address `json:"secondaries,omitempty"`
}

// NewAddress 创建单宿主地址
func NewAddress(host string, port int) Address {
	return Address{Host: host, Port: port}
}

// WithSecondaries 返回附加了次地址的副本
func (a Address) WithSecondaries(secondaries ...Address) Address {
	out := Address{Host: a.Host, Port: a.Port}
	out.Secondaries = make([]Address, 0, len(a.Secondaries)+len(secondaries))
	for _, s := range a.Secondaries {
		out.Secondaries = append(out.Secondaries, s.Primary())
	}
	for _, s := range secondaries {
		out.Secondaries = append(out.Secondaries, s.Primary())
	}
	return out
}

// Primary 返回去掉次地址的主地址
func (a Address) Primary() Address {
	return Address{Host: a.Host, Port: a.Port}
}

// Key 返回主地址 host:port，用作映射键
func (a Address) Key() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Equal 比较主地址
func (a Address) Equal(other Address) bool {
	return a.Host == other.Host && a.Port == other.Port
}

// IsMultiHomed 是否携带次地址
func (a Address) IsMultiHomed() bool {
	return len(a.Secondaries) > 0
}

// Endpoints 返回主地址和全部次地址，按拨号顺序
func (a Address) Endpoints() []Address {
	eps := make([]Address, 0, 1+len(a.Secondaries))
	eps = append(eps, a.Primary())
	for _, s := range a.Secondaries {
		eps = append(eps, s.Primary())
	}
	return eps
}

// IsZero 是否为空地址
func (a Address) IsZero() bool {
	return a.Host == "" && a.Port == 0 && len(a.Secondaries) == 0
}

// Validate 校验主地址和次地址
func (a Address) Validate() error {
	for i, ep := range a.Endpoints() {
		if ep.Port < 1 || ep.Port > 65535 {
			return fmt.Errorf("%w: endpoint %d port %d", ErrInvalidPort, i, ep.Port)
		}
	}
	return nil
}

// String 返回 host:port{sec1,sec2}
func (a Address) String() string {
	if len(a.Secondaries) == 0 {
		return a.Key()
	}
	parts := make([]string, len(a.Secondaries))
	for i, s := range a.Secondaries {
		parts[i] = s.Key()
	}
	return a.Key() + "{" + strings.Join(parts, ",") + "}"
}

// ============================================================================
//                              解析
// ============================================================================

// ParseAddress 解析 host:port
//
// 端口 0 允许用于监听地址（由系统分配），但 Validate 会拒绝。
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, ErrEmptyAddress
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidPort, portStr)
	}
	return Address{Host: host, Port: port}, nil
}

// ParseMultiHomed 解析逗号分隔的多宿主地址，第一个为主地址
func ParseMultiHomed(s string) (Address, error) {
	fields := strings.Split(s, ",")
	primary, err := ParseAddress(fields[0])
	if err != nil {
		return Address{}, err
	}
	for _, f := range fields[1:] {
		if strings.TrimSpace(f) == "" {
			continue
		}
		sec, err := ParseAddress(f)
		if err != nil {
			return Address{}, err
		}
		primary.Secondaries = append(primary.Secondaries, sec)
	}
	return primary, nil
}

// MustParseAddress 解析失败时 panic，仅用于测试和常量
func MustParseAddress(s string) Address {
	a, err := ParseMultiHomed(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromNetAddr 从 net.Addr 构造地址
func AddressFromNetAddr(addr net.Addr) (Address, error) {
	if addr == nil {
		return Address{}, ErrEmptyAddress
	}
	return ParseAddress(addr.String())
}
