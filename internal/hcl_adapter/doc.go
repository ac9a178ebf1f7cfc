// Package hcl_adapter loads test definitions written in HCL: environment,
// test and campaign blocks. Definitions are decoded into the engine's model
// and synced into a store.
//
//	environment "staging" {
//	  variables      = { base_url = "https://staging.example.com" }
//	  root_variables = { admin_token = env("ADMIN_TOKEN") }
//	}
//
//	test "login" {
//	  campaign  = "smoke"
//	  variables = ["status"]
//
//	  action "http" {
//	    config = { method = "GET", url = "{{base_url}}/health" }
//	    output = { http_status_code = "status" }
//	  }
//	}
//
//	campaign "smoke" {
//	  environment     = "staging"
//	  stop_on_failure = true
//	}
package hcl_adapter
