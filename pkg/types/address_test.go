package types

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr error
	}{
		{"ipv4", "127.0.0.1:9000", Address{Host: "127.0.0.1", Port: 9000}, nil},
		{"ipv6", "[::1]:9000", Address{Host: "::1", Port: 9000}, nil},
		{"hostname", "localhost:1", Address{Host: "localhost", Port: 1}, nil},
		{"empty", "", Address{}, ErrEmptyAddress},
		{"no port", "localhost", Address{}, ErrInvalidAddress},
		{"bad port", "localhost:x", Address{}, ErrInvalidPort},
		{"port too big", "localhost:70000", Address{}, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMultiHomed(t *testing.T) {
	addr, err := ParseMultiHomed("10.0.0.1:9000, 10.0.1.1:9000,10.0.2.1:9001")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", addr.Host)
	assert.Equal(t, 9000, addr.Port)
	require.Len(t, addr.Secondaries, 2)
	assert.Equal(t, "10.0.1.1:9000", addr.Secondaries[0].Key())
	assert.True(t, addr.IsMultiHomed())

	// 次地址按声明顺序排在主地址之后
	eps := addr.Endpoints()
	require.Len(t, eps, 3)
	assert.Equal(t, "10.0.0.1:9000", eps[0].Key())
	assert.Equal(t, "10.0.2.1:9001", eps[2].Key())

	_, err = ParseMultiHomed("10.0.0.1:9000,bad")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_IdentityIgnoresSecondaries(t *testing.T) {
	a := MustParseAddress("10.0.0.1:9000,10.0.1.1:9000")
	b := MustParseAddress("10.0.0.1:9000")

	// 相等性只比较主地址
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	m := map[string]int{a.Key(): 1}
	assert.Equal(t, 1, m[b.Key()])

	assert.False(t, a.Equal(NewAddress("10.0.0.1", 9001)))
}

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "127.0.0.1:80", NewAddress("127.0.0.1", 80).String())
	assert.Equal(t, "[::1]:80", NewAddress("::1", 80).String())

	a := NewAddress("a", 1).WithSecondaries(NewAddress("b", 2), NewAddress("c", 3))
	assert.Equal(t, "a:1{b:2,c:3}", a.String())
}

func TestAddress_Validate(t *testing.T) {
	assert.NoError(t, NewAddress("a", 1).Validate())
	assert.ErrorIs(t, NewAddress("a", 0).Validate(), ErrInvalidPort)

	a := NewAddress("a", 1).WithSecondaries(NewAddress("b", 70000))
	assert.ErrorIs(t, a.Validate(), ErrInvalidPort)
}

func TestAddress_JSON(t *testing.T) {
	a := MustParseAddress("a:1,b:2")
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"a","port":1,"secondaries":[{"host":"b","port":2}]}`, string(data))

	var back Address
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestAddressFromNetAddr(t *testing.T) {
	addr, err := AddressFromNetAddr(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", addr.Key())

	_, err = AddressFromNetAddr(nil)
	assert.ErrorIs(t, err, ErrEmptyAddress)
}
