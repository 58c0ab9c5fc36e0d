package config

type WorkerKeyStruct struct {
	PersistProgressQueue  string
	PersistStudyTimeQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:  "persist_progress_queue",
	PersistStudyTimeQueue: "persist_study_time_queue",
}
