package app

import "charm.land/lipgloss/v2"

var (
	headerStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	sceneStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	sceneActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	selectedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	placeholderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	dividerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
	filterOnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	filterOffStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	filterSectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Bold(true)
	overlayBorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)
	panelFocusedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	panelUnfocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
