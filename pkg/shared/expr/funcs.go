/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/goccy/go-json"
)

var sprigFuncMap = sprig.GenericFuncMap()

func getFuncMap(fields map[string]interface{}) map[string]interface{} {
	env := expand(fields)
	env["sprig"] = sprigFuncMap
	env["json"] = _json
	env["int"] = _int
	env["string"] = _string
	return env
}

// expand nests dotted keys: {"a.b": 1, "c": 2} becomes {"a": {"b": 1}, "c": 2}. A plain key
// wins over a dotted key with the same prefix.
func expand(fields map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if !strings.Contains(k, ".") {
			env[k] = v
		}
	}
	for k, v := range fields {
		head, rest, ok := strings.Cut(k, ".")
		if !ok {
			continue
		}
		if _, plain := fields[head]; plain {
			continue
		}
		nested, _ := env[head].(map[string]interface{})
		if nested == nil {
			nested = make(map[string]interface{})
		}
		nested[rest] = v
		env[head] = nested
	}
	for k, v := range env {
		if nested, ok := v.(map[string]interface{}); ok {
			if _, plain := fields[k]; !plain {
				env[k] = expand(nested)
			}
		}
	}
	return env
}

func _int(v interface{}) int {
	switch w := v.(type) {
	case []byte:
		i, err := strconv.Atoi(string(w))
		if err != nil {
			panic(fmt.Errorf("cannot convert %q an int", v))
		}
		return i
	case string:
		i, err := strconv.Atoi(w)
		if err != nil {
			panic(fmt.Errorf("cannot convert %q to int", v))
		}
		return i
	case float64:
		return int(w)
	case int:
		return w
	default:
		panic(fmt.Errorf("cannot convert %v to int", v))
	}
}

func _string(v interface{}) string {
	switch w := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(w)
	case string:
		return w
	default:
		return fmt.Sprintf("%v", v)
	}
}

func _json(v interface{}) map[string]interface{} {
	x := make(map[string]interface{})
	switch w := v.(type) {
	case nil:
		return nil
	case []byte:
		if err := json.Unmarshal(w, &x); err != nil {
			panic(fmt.Errorf("cannot convert %q to object: %v", v, err))
		}
		return x
	case string:
		if err := json.Unmarshal([]byte(w), &x); err != nil {
			panic(fmt.Errorf("cannot convert %q to object: %v", v, err))
		}
		return x
	default:
		panic("unknown type")
	}
}
