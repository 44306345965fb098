package jobs

// ExportAttendeesPayload is ID based; the worker loads everything else from the store.
type ExportAttendeesPayload struct {
	EventID   string `json:"eventId"`
	RequestID string `json:"requestId,omitempty"`
}

// ExportResult is what a finished export leaves in the job status.
type ExportResult struct {
	EventName     string `json:"eventName"`
	Registrations int    `json:"registrations"`
	Attendees     int    `json:"attendees"`
	Message       string `json:"message"`
	CSV           string `json:"csv"`
	ObjectKey     string `json:"objectKey,omitempty"`
	DownloadURL   string `json:"downloadUrl,omitempty"`
}
