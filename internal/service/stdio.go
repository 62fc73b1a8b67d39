package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/icl-lang/iclc/core/compiler"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/registry"
)

// stdioRequest is one line of input on the stdio adapter: a compile
// request plus the operation to run it through.
type stdioRequest struct {
	Op string `json:"op"` // "compile", "check", or "explain"
	compileRequest
}

type stdioResponse struct {
	Op       string          `json:"op"`
	Outcomes []outcomeDoc    `json:"outcomes,omitempty"`
	Explain  json.RawMessage `json:"explain,omitempty"`
	Status   string          `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// RunStdio serves the compiler over a line-delimited JSON protocol: one
// request object per input line, one response object per output line, in
// request order. It returns when the input stream ends. Malformed lines
// produce an error response rather than terminating the session, so a
// long-lived editor or tool process survives its own bad request.
func RunStdio(r io.Reader, w io.Writer, reg *registry.Registry) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req stdioRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(stdioResponse{Error: fmt.Sprintf("SRV001: bad request: %v", err)}); encErr != nil {
				return encErr
			}
			continue
		}
		if err := enc.Encode(handleStdio(req, reg)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func handleStdio(req stdioRequest, reg *registry.Registry) stdioResponse {
	resp := stdioResponse{Op: req.Op}
	switch req.Op {
	case "compile":
		outcomes, err := compiler.Compile(requestFile(req.File), req.Source, req.options(), reg, nil)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Outcomes = encodeOutcomes(outcomes)

	case "check":
		if err := compiler.Check(requestFile(req.File), req.Source, req.options(), nil); err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Status = "ok"

	case "explain":
		var target string
		if len(req.Targets) > 0 {
			target = req.Targets[0]
		}
		var caps *lower.Capabilities
		if target != "" {
			p, ok := reg.Get(target)
			if !ok {
				resp.Error = fmt.Sprintf("SRV002: unknown target %q", target)
				return resp
			}
			c := p.Manifest().Capabilities()
			caps = &c
		}
		result, err := compiler.Explain(requestFile(req.File), req.Source, req.options(), nil, target, caps)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		out, err := compiler.EncodeExplain(result)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Explain = out

	default:
		resp.Error = fmt.Sprintf("SRV003: unknown op %q", req.Op)
	}
	return resp
}
