package uploader

// classifyResponses applies one attempt's responses against the set of
// chunk indexes still under consideration, removing indexes that were
// confirmed written (fully or partially) and returning the total records
// written this attempt plus whether the next retry should wait longer
// because of an authorisation-kind failure.
func classifyResponses(responses map[int]Response, considered map[int]bool, expected func(idx int) int) (written int, extraWait bool) {
	for idx := range considered {
		resp, ok := responses[idx]
		if !ok || !resp.Present {
			continue
		}

		switch {
		case (resp.StatusCode == statusOK || resp.StatusCode == statusCreated) && resp.TotalWritten == expected(idx):
			written += resp.TotalWritten
			delete(considered, idx)
		case (resp.StatusCode == statusOK || resp.StatusCode == statusCreated) && resp.TotalWritten > 0:
			written += resp.TotalWritten
			delete(considered, idx)
		case resp.Code == codeInsufficientPermission:
			extraWait = true
		}
	}
	return written, extraWait
}
