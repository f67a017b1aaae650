package kv

import (
	"bytes"
	"encoding/binary"
	"time"
)

// 不支持按键过期的后端（nats、groupcache）在值前加上过期时间:
// magic(4) | unix 毫秒(8, big endian) | value.
var ttlMagic = []byte("qd\x00\x01")

const ttlHeader = 4 + 8

// seal ttl<=0 时原样返回.
func seal(value []byte, ttl time.Duration, now time.Time) []byte {
	if ttl <= 0 {
		return value
	}

	out := make([]byte, ttlHeader+len(value))
	copy(out, ttlMagic)
	binary.BigEndian.PutUint64(out[4:ttlHeader], uint64(now.Add(ttl).UnixMilli()))
	copy(out[ttlHeader:], value)

	return out
}

// unseal 返回值本身以及是否已过期.
func unseal(b []byte, now time.Time) ([]byte, bool) {
	if len(b) < ttlHeader || !bytes.HasPrefix(b, ttlMagic) {
		return b, false
	}

	exp := int64(binary.BigEndian.Uint64(b[4:ttlHeader]))
	if now.UnixMilli() >= exp {
		return nil, true
	}

	return b[ttlHeader:], false
}
