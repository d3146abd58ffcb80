// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"

	"goji.io"
)

// FloatT is a struct with a single float64 field, used for json requests and responses
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, used for json requests and responses
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field, used for json requests and responses
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, used for json requests and responses
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct that holds the various types of data that can be
// returned to a client, with a type tag saying which field is live
type HumanPayload struct {
	// Bool holds a binary value
	Bool bool

	// Int holds an integer value
	Int int

	// Float holds a floating point value
	Float float64

	// String holds a text value
	String string

	// T is the type of the live field
	T types.BasicKind
}

// EncodeAndRespond writes the payload to w as json
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, fmt.Sprintf("unknown payload type %v", hp.T), http.StatusInternalServerError)
		return
	}
	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		fstr := fmt.Sprintf("error encoding payload to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// RouteTable maps goji patterns to handler funcs
type RouteTable map[goji.Pattern]http.HandlerFunc

// Endpoints returns the stringer representations of the patterns in the table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		if s, ok := k.(fmt.Stringer); ok {
			routes = append(routes, s.String())
		}
	}
	return routes
}

// Bind attaches every route in the table to the mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for ptrn, meth := range rt {
		m.Handle(ptrn, meth)
	}
}

// HTTPer is an object that exposes a route table
type HTTPer interface {
	// RT yields the route table for binding
	RT() RouteTable
}
