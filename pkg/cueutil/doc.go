// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the CUE decoding flow shared by module manifests
// and the configuration file.
//
// Every CUE document showrefs reads goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate and decode into a Go struct
//
// # Usage
//
//	//go:embed module_schema.cue
//	var schema string
//
//	result, err := cueutil.ParseAndDecodeString[Manifest](
//	    schema,
//	    data,
//	    "#Module",
//	    cueutil.WithFilename(path),
//	)
//	if err != nil {
//	    return nil, err // error carries the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
