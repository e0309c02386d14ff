package message

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamMarshal(t *testing.T) {
	cases := []struct {
		name  string
		param Param
		want  string
	}{
		{"string", Str("alice:tok"), "<param><value>alice:tok</value></param>"},
		{"empty string", Str(""), "<param><value></value></param>"},
		{"escaped string", Str(`a<b&"c"`), "<param><value>a&lt;b&amp;&#34;c&#34;</value></param>"},
		{"int", Int(-1), "<param><value><int>-1</int></value></param>"},
		{"bool false", Bool(false), "<param><value><boolean>0</boolean></value></param>"},
		{"bool true", Bool(true), "<param><value><boolean>1</boolean></value></param>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := xml.Marshal(tc.param)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestMethodCallRoundTrip(t *testing.T) {
	call := NewMethodCall("one.template.instantiate",
		Str("bob:tok"), Int(7), Str("web-1"), Bool(false), Str(""), Bool(true))

	data, err := xml.Marshal(call)
	require.NoError(t, err)

	var got MethodCall
	require.NoError(t, xml.Unmarshal(data, &got))

	assert.Equal(t, call.MethodName, got.MethodName)
	require.Len(t, got.Params, len(call.Params))
	for i := range call.Params {
		assert.Equal(t, call.Params[i], got.Params[i], "param %d", i)
	}
}

func TestParamUnmarshalTypedString(t *testing.T) {
	var call MethodCall
	doc := `<methodCall><methodName>m</methodName><params>
		<param><value><string>x</string></value></param>
		<param><value><i4> 12 </i4></value></param>
	</params></methodCall>`
	require.NoError(t, xml.Unmarshal([]byte(doc), &call))
	require.Len(t, call.Params, 2)
	assert.Equal(t, Str("x"), call.Params[0])
	assert.Equal(t, Int(12), call.Params[1])
}

func TestParseBool(t *testing.T) {
	b, err := ParseBool(" 1 ")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = ParseBool("0")
	require.NoError(t, err)
	assert.False(t, b)

	_, err = ParseBool("true")
	assert.Error(t, err)
}

func TestValueTyped(t *testing.T) {
	assert.False(t, (&Value{Text: "plain"}).Typed())
	assert.True(t, StringValue("").Typed())
	assert.True(t, ArrayValue().Typed())
}
