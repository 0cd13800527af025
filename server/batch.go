package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/9seconds/geoipd/geodb"
	"github.com/9seconds/geoipd/mmdb"
)

type batchLookupRequest struct {
	ctx           context.Context
	key           string
	ip            net.IP
	resultChannel chan<- batchLookupResult
	wg            *sync.WaitGroup
}

type batchLookupResult struct {
	key    string
	record mmdb.Value
}

// batchLookupIP is executed on the worker pool, one invocation per
// address of a batch request.
func (h *handlers) batchLookupIP(raw interface{}) {
	req := raw.(*batchLookupRequest)
	defer req.wg.Done()

	var record mmdb.Value

	if !geodb.IsReservedIP(req.ip) {
		value, err := h.lookuper.Lookup(req.ctx, req.ip)
		h.stats.Used(err)

		if err == nil {
			record = value
		}
	}

	select {
	case req.resultChannel <- batchLookupResult{key: req.key, record: record}:
	case <-req.ctx.Done():
	}
}

// handleBatch resolves a set of addresses in one request. Addresses
// which are reserved, unknown or failing come back as null entries:
// one bad address must not fail the whole batch.
func (h *handlers) handleBatch(w http.ResponseWriter, req *http.Request) {
	requestBody := batchRequestStruct{}

	if err := json.NewDecoder(req.Body).Decode(&requestBody); err != nil {
		sendError(w, errIPAddressInvalid.withMessage(err.Error()))

		return
	}

	if len(requestBody.IPs) == 0 {
		sendError(w, errIPAddressRequired)

		return
	}

	resultChannel := make(chan batchLookupResult, len(requestBody.IPs))
	wg := &sync.WaitGroup{}

	for _, v := range requestBody.IPs {
		wg.Add(1)

		lookupReq := &batchLookupRequest{
			ctx:           req.Context(),
			key:           v.key,
			ip:            v.parsed,
			resultChannel: resultChannel,
			wg:            wg,
		}

		if err := h.workerPool.Invoke(lookupReq); err != nil {
			wg.Done()
			sendError(w, errDatabaseError)

			return
		}
	}

	go func() {
		wg.Wait()
		close(resultChannel)
	}()

	results := map[string]mmdb.Value{}
	for res := range resultChannel {
		results[res.key] = res.record
	}

	response := struct {
		Results map[string]mmdb.Value `json:"results"`
	}{
		Results: results,
	}

	encodeJSON(w, response)
}
