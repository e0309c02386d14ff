// Package codec serializes message documents to and from the XML wire format.
//
// The control plane speaks XML-RPC over a single HTTP POST. XMLCodec handles
// both directions so the client (MethodCall out, MethodResponse in) and the
// server (MethodCall in, MethodResponse out) share one implementation.
package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"one-rpc/message"
)

const (
	ContentTypeXML  = "application/xml"
	ContentTypeText = "text/xml"
)

// Codec turns message documents into bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string
}

// GetCodec returns an XML codec for the given content type. An empty content
// type falls back to application/xml.
func GetCodec(contentType string) Codec {
	if contentType == "" {
		contentType = ContentTypeXML
	}
	return &XMLCodec{contentType: contentType}
}

// XMLCodec uses encoding/xml. Marshal and Unmarshal keep no state between
// calls, so one instance can be shared by concurrent callers.
type XMLCodec struct {
	contentType string
}

func (c *XMLCodec) Encode(v any) ([]byte, error) {
	// v must be *MethodCall or *MethodResponse
	switch doc := v.(type) {
	case *message.MethodCall:
		if doc.MethodName == "" {
			return nil, errors.New("XMLCodec: empty method name")
		}
		return marshal(doc)
	case *message.MethodResponse:
		return marshal(doc)
	default:
		return nil, fmt.Errorf("XMLCodec: unsupported type %T", v)
	}
}

func (c *XMLCodec) Decode(data []byte, v any) error {
	switch v.(type) {
	case *message.MethodCall, *message.MethodResponse:
		return xml.Unmarshal(data, v)
	default:
		return fmt.Errorf("XMLCodec: unsupported type %T", v)
	}
}

func (c *XMLCodec) ContentType() string {
	if c.contentType == "" {
		return ContentTypeXML
	}
	return c.contentType
}

// BuildEnvelope serializes a method call with params in input order.
func BuildEnvelope(method string, params ...message.Param) ([]byte, error) {
	return GetCodec(ContentTypeXML).Encode(message.NewMethodCall(method, params...))
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
