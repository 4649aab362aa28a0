/*
Package types defines the data structures shared by the API test engine.

# Request Types

RequestSpec:
  - One HTTP request under test (url, method, headers, body, params)
  - Optional authentication (AuthConfig)
  - Timeout in seconds
  - Optional ValidationRules

Body:
  - Raw text sent verbatim, or
  - Any other JSON value sent as a JSON document

# Validation

ValidationRules:
  - status_code, contains, json_path, headers, max_response_time_ms
  - json_path and headers are OrderedMaps so diagnostics follow the order
    in which the caller wrote them

# Result Types

APITestResult:
  - success, status_code, response_time_ms
  - response_body (decoded JSON or raw text)
  - response headers
  - error (set only when the request never completed)
  - validations (ordered diagnostics)
*/
package types
