// Package envfile loads environments from YAML files.
//
// An environment file holds one or more YAML documents of the form:
//
//	name: staging
//	description: Pre-production cluster
//	variables:
//	  base_url: https://staging.example.com
//	  port: 8443
//	root_variables:
//	  admin_token: s3cret
//
// Every document is checked against a JSON Schema generated from File
// before it is decoded. Scalar values are kept as their YAML text, so
// `port: 8443` becomes the variable value "8443".
package envfile
