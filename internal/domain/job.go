package domain

import (
	"errors"
	"time"
)

// Une passe de synchro s'exécute comme un job asynchrone. Le type dit si
// elle peut écrire le catalogue.
const (
	JobTypeSync    = "sync"
	JobTypeSyncDry = "sync-dry"
)

// SyncJobType renvoie le type de job d'une passe.
func SyncJobType(dryRun bool) string {
	if dryRun {
		return JobTypeSyncDry
	}
	return JobTypeSync
}

// IsSyncJobType vaut true pour les deux types de passe.
func IsSyncJobType(t string) bool {
	return t == JobTypeSync || t == JobTypeSyncDry
}

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

func (s JobState) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Valid refuse les états inconnus (filtres de l'API).
func (s JobState) Valid() bool {
	switch s {
	case JobQueued, JobRunning, JobCompleted, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Job est une passe persistée. ParamsJSON porte les options de la passe,
// ResultJSON son bilan une fois terminée.
type Job struct {
	ID        string
	Type      string
	State     JobState
	Progress  float64
	CreatedAt time.Time
	UpdatedAt time.Time

	ParamsJSON   []byte
	ResultJSON   []byte
	ErrorCode    string
	ErrorMessage string
}

var ErrInvalidTransition = errors.New("invalid job state transition")

// transitions: queued -> running -> {completed, failed, canceled}.
// Une passe en attente peut aussi être annulée ou échouer avant de démarrer.
var transitions = map[JobState][]JobState{
	JobQueued:  {JobRunning, JobCanceled, JobFailed},
	JobRunning: {JobCompleted, JobCanceled, JobFailed},
}

func CanTransition(from, to JobState) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
