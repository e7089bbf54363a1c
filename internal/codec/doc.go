// Package codec implements the payload envelope used by the SSG claims API.
//
// Request bodies are serialized to JSON, encrypted with AES-256 in CBC mode
// and base64 encoded. Responses are reversed the same way. The IV is a fixed
// 16-byte ASCII string shared by both ends and is never transmitted, padding
// is PKCS#7. None of these parameters are configurable: any deviation breaks
// interoperability with the remote service.
//
// The encryption key is handed over as base64 text and must decode to
// exactly 32 bytes. Every function here is a pure transform with no retained
// state, so concurrent calls never share cipher material.
package codec
