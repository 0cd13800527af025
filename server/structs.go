package server

import (
	"encoding/json"
	"fmt"
	"net"
)

type databaseInfoStruct struct {
	DatabaseType string            `json:"database_type"`
	BuildTime    int64             `json:"build_time"`
	NodeCount    uint              `json:"node_count"`
	RecordSize   uint              `json:"record_size"`
	IPVersion    uint              `json:"ip_version"`
	Languages    []string          `json:"languages"`
	Description  map[string]string `json:"description"`
}

type batchRequestIP struct {
	key    string
	parsed net.IP
}

type batchRequestStruct struct {
	IPs []batchRequestIP
}

func (b *batchRequestStruct) UnmarshalJSON(text []byte) error {
	raw := struct {
		IPs []string `json:"ips"`
	}{}

	if err := json.Unmarshal(text, &raw); err != nil {
		return err
	}

	b.IPs = make([]batchRequestIP, 0, len(raw.IPs))

	for _, v := range raw.IPs {
		parsed := net.ParseIP(v)
		if parsed == nil {
			return fmt.Errorf("cannot parse %s as an ip address", v)
		}

		b.IPs = append(b.IPs, batchRequestIP{key: v, parsed: parsed})
	}

	return nil
}
