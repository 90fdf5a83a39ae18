package model

// AddRawLineToActivityLog appends a line and trims the log to MaxActivityLogLines.
func (m *Model) AddRawLineToActivityLog(line string) {
	m.ActivityLog = append(m.ActivityLog, line)
	if over := len(m.ActivityLog) - MaxActivityLogLines; over > 0 {
		m.ActivityLog = append([]string(nil), m.ActivityLog[over:]...)
	}
}
