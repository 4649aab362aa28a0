/*
Package executor performs the single HTTP exchange behind an API test.

# Overview

Execute takes a fully resolved Request and returns a Response:
  - Query parameters are appended to the URL
  - Headers are set as given (auth headers are merged in beforehand)
  - Basic credentials are applied by the transport via SetBasicAuth
  - The timeout is a hard deadline covering dispatch and body read

# Request Body

Only POST, PUT and PATCH send a body:
  - Raw text is sent verbatim
  - Any other JSON value is sent as a JSON document with
    Content-Type: application/json unless the caller set one

Other methods ignore the declared body.

# Response Body

The body is read fully, then decoded as JSON. When decoding fails the raw
text is kept verbatim and IsJSON is false.

# Timing

ElapsedMs starts just before the request is dispatched and stops once the
response body has been read.

# Error Handling

Connection failures, DNS failures, TLS failures, timeouts and broken body
reads are returned as *NetworkError. HTTP error statuses are not errors.

# Example Usage

	exec := executor.New()

	resp, err := exec.Execute(ctx, &executor.Request{
		Method:  "POST",
		URL:     "https://api.example.com/users",
		Headers: map[string]string{"Authorization": "Bearer abc"},
		Body:    &types.Body{JSON: json.RawMessage(`{"name":"Jane"}`)},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Status: %d in %.2fms\n", resp.StatusCode, resp.ElapsedMs)

# Thread Safety

An Executor holds one http.Client and is safe to call concurrently.
*/
package executor
