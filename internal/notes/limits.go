package notes

// LimitCheck holds the two independent verdicts for a proposed attachment
// batch. Callers must reject the whole batch if either is false; partial
// acceptance is not supported.
type LimitCheck struct {
	WithinCountLimit bool
	WithinSizeLimit  bool
}

// CheckLimits validates adding incoming attachments on top of the current
// set against the count and size ceilings.
func CheckLimits(current, incoming []Attachment) LimitCheck {
	check := LimitCheck{
		WithinCountLimit: len(current)+len(incoming) <= MaxAttachmentsPerNote,
		WithinSizeLimit:  true,
	}
	for _, a := range incoming {
		if a.Size > MaxAttachmentSize {
			check.WithinSizeLimit = false
			break
		}
	}
	return check
}

// ValidateAttachments folds a limit check into the error taxonomy used at
// the add/update boundary.
func ValidateAttachments(current, incoming []Attachment) error {
	check := CheckLimits(current, incoming)
	if !check.WithinCountLimit {
		return ErrAttachmentCount
	}
	if !check.WithinSizeLimit {
		return ErrAttachmentSize
	}
	return nil
}
