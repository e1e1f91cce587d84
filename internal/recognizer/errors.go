package recognizer

// NetworkError reports that the recognition service was unreachable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil || e.Err == nil {
		return "recognition network error"
	}
	return "recognition network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ServiceError reports that the service refused the request or returned
// a malformed response.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	if e == nil || e.Err == nil {
		return "recognition service error"
	}
	return "recognition service error: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TimeoutError reports that recognition exceeded its deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	if e == nil || e.Err == nil {
		return "recognition timed out"
	}
	return "recognition timed out: " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
