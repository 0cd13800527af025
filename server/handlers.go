package server

import (
	"net"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/panjf2000/ants/v2"

	"github.com/9seconds/geoipd/geodb"
	"github.com/9seconds/geoipd/mmdb"
)

type handlers struct {
	lookuper   geodb.Lookuper
	store      *geodb.Store
	stats      *geodb.UsageStats
	workerPool *ants.PoolWithFunc
}

func (h *handlers) handleCity(w http.ResponseWriter, req *http.Request) {
	h.handleLookup(w, req, geodb.CityRecord)
}

func (h *handlers) handleCountry(w http.ResponseWriter, req *http.Request) {
	h.handleLookup(w, req, geodb.CountryRecord)
}

func (h *handlers) handleLookup(w http.ResponseWriter,
	req *http.Request,
	project func(mmdb.Value) mmdb.Value) {
	ip, apiErr := h.requestIP(req)
	if apiErr != nil {
		sendError(w, apiErr)

		return
	}

	value, err := h.lookuper.Lookup(req.Context(), ip)
	h.stats.Used(err)

	switch {
	case err != nil:
		sendError(w, errDatabaseError)
	case value == nil:
		sendError(w, errIPAddressNotFound)
	default:
		encodeJSON(w, project(value))
	}
}

// requestIP extracts an address from the ip path parameter. The literal
// "me" means a client wants to resolve itself: RealIP middleware has
// already placed the proper address into RemoteAddr.
func (h *handlers) requestIP(req *http.Request) (net.IP, *apiError) {
	raw := chi.URLParam(req, "ip")
	if raw == "" {
		return nil, errIPAddressRequired
	}

	if raw == "me" {
		host, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			host = req.RemoteAddr
		}

		raw = host
	}

	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, errIPAddressInvalid.withMessage(
			"cannot parse " + raw + " as an ip address")
	}

	if geodb.IsReservedIP(ip) {
		return nil, errIPAddressReserved
	}

	return ip, nil
}

func (h *handlers) handleInfo(w http.ResponseWriter, req *http.Request) {
	response := struct {
		Database *databaseInfoStruct `json:"database"`
		Stats    *geodb.UsageStats   `json:"stats"`
	}{
		Stats: h.stats,
	}

	if metadata, err := h.store.Metadata(); err == nil {
		response.Database = &databaseInfoStruct{
			DatabaseType: metadata.DatabaseType,
			BuildTime:    metadata.BuildTime().Unix(),
			NodeCount:    metadata.NodeCount,
			RecordSize:   metadata.RecordSize,
			IPVersion:    metadata.IPVersion,
			Languages:    metadata.Languages,
			Description:  metadata.Description,
		}
	}

	encodeJSON(w, response)
}

func (h *handlers) handleStatus(w http.ResponseWriter, req *http.Request) {
	response := struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
	}{
		Status: "ok",
		Ready:  h.store.Ready(),
	}

	encodeJSON(w, response)
}
