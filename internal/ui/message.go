package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCompared MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type comparedData struct {
	result *models.CompareResult
	err    error
}

type syncData struct {
	result *models.SyncResult
	err    error
}

// comparedMsg is the constructor for [MsgCompared]
func comparedMsg(result *models.CompareResult, err error) Msg {
	return Msg{kind: MsgCompared, data: comparedData{result, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *models.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncData{result, err}}
}
