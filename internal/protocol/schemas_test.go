package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	reject := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err == nil {
			t.Fatalf("expected validation failure")
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	actSchema := compile("act.schema.json")
	resultSchema := compile("result.schema.json")
	generationSchema := compile("generation.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"editor1",
	  "capabilities":{"want_meshes":true,"max_queue":8}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "terrain_id":"t1",
	  "grid":{"rows":250,"columns":250,"cell_size":0.4},
	  "signature":"g250x250@0.4#0a1b2c3d",
	  "generation":{"seed":1337,"mode":"perlin","noise_scale":40,"noise_amplitude":6}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var gen any
	_ = json.Unmarshal([]byte(`{
	  "seed":1337,
	  "mode":"perlin",
	  "noise_scale":40,
	  "noise_amplitude":6,
	  "detail_scale":9,
	  "edge_falloff":24
	}`), &gen)
	validate(generationSchema, gen)

	var generate any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "id":"K0",
	  "op":"GENERATE",
	  "generation":{"seed":42,"mode":"ridge","noise_scale":30,"noise_amplitude":8}
	}`), &generate)
	validate(actSchema, generate)

	var badMode any
	_ = json.Unmarshal([]byte(`{"seed":1,"mode":"fractal"}`), &badMode)
	reject(generationSchema, badMode)

	var sculpt any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "id":"K1",
	  "op":"SCULPT",
	  "brush":{"center_x":0,"center_z":0,"radius":2,"strength":1,"shape":"circle","op":"raise"}
	}`), &sculpt)
	validate(actSchema, sculpt)

	var buildRoad any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "id":"K2",
	  "op":"BUILD_ROAD",
	  "road":{"id":"r1","vertices":[[-20,0],[0,0],[20,0]],"segments":[[0,1],[1,2]]}
	}`), &buildRoad)
	validate(actSchema, buildRoad)

	var result any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"1.0",
	  "id":"K2",
	  "op":"BUILD_ROAD",
	  "ok":true,
	  "signature":"road:r1|v3|s2|...",
	  "bodies":7,
	  "tiles":7
	}`), &result)
	validate(resultSchema, result)

	var badBrush any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "id":"K3",
	  "op":"SCULPT",
	  "brush":{"center_x":0,"center_z":0,"radius":2,"strength":1,"shape":"hexagon","op":"raise"}
	}`), &badBrush)
	reject(actSchema, badBrush)

	var badCode any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"1.0",
	  "id":"K4",
	  "op":"SCULPT",
	  "ok":false,
	  "code":"not-a-code"
	}`), &badCode)
	reject(resultSchema, badCode)
}
