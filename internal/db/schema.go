package db

// Timestamps are unix seconds. Deleting a subject or quiz cascades through
// every dependent row.

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  email         TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  name           TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  curriculum     TEXT NOT NULL DEFAULT '',
  curriculum_url TEXT NOT NULL DEFAULT '',
  number_of_days INTEGER NOT NULL DEFAULT 30,
  created_by     INTEGER NOT NULL,
  created_at     INTEGER NOT NULL,
  updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lessons (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title      TEXT NOT NULL,
  content    TEXT NOT NULL,
  day_number INTEGER NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 1,
  created_by INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS student_progress (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  student_id   INTEGER NOT NULL,
  subject_id   INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  lesson_id    INTEGER NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  completed_at INTEGER NOT NULL,
  UNIQUE (student_id, lesson_id)
);

CREATE TABLE IF NOT EXISTS quizzes (
  id                     INTEGER PRIMARY KEY AUTOINCREMENT,
  subject_id             INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title                  TEXT NOT NULL,
  description            TEXT NOT NULL DEFAULT '',
  type                   TEXT NOT NULL,
  day_number             INTEGER,
  model_answer_text      TEXT,
  model_answer_image_url TEXT,
  results_published      BOOLEAN NOT NULL DEFAULT 0,
  created_by             INTEGER NOT NULL,
  created_at             INTEGER NOT NULL,
  updated_at             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_questions (
  id                         INTEGER PRIMARY KEY AUTOINCREMENT,
  quiz_id                    INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  question                   TEXT NOT NULL,
  question_type              TEXT NOT NULL,
  sort_order                 INTEGER NOT NULL,
  reference_answer_text      TEXT,
  reference_answer_image_url TEXT
);

CREATE TABLE IF NOT EXISTS quiz_options (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  question_id INTEGER NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
  text        TEXT NOT NULL,
  is_correct  BOOLEAN NOT NULL DEFAULT 0,
  sort_order  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  quiz_id      INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  student_id   INTEGER NOT NULL,
  status       TEXT NOT NULL,
  started_at   INTEGER NOT NULL,
  submitted_at INTEGER NOT NULL,
  UNIQUE (student_id, quiz_id)
);

CREATE TABLE IF NOT EXISTS student_answers (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  attempt_id         INTEGER NOT NULL REFERENCES quiz_attempts(id) ON DELETE CASCADE,
  quiz_id            INTEGER NOT NULL,
  student_id         INTEGER NOT NULL,
  question_id        INTEGER NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
  selected_option_id INTEGER,
  text_answer        TEXT,
  image_url          TEXT,
  score              INTEGER,
  feedback           TEXT,
  submitted_at       INTEGER NOT NULL,
  graded_at          INTEGER,
  graded_by          INTEGER,
  UNIQUE (attempt_id, question_id)
);
CREATE INDEX IF NOT EXISTS idx_student_answers_quiz ON student_answers (quiz_id, student_id);

CREATE TABLE IF NOT EXISTS access_permissions (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  student_id INTEGER NOT NULL,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  has_access BOOLEAN NOT NULL DEFAULT 1,
  start_date INTEGER,
  end_date   INTEGER,
  created_by INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (student_id, subject_id)
);

CREATE TABLE IF NOT EXISTS chat_history (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  student_id INTEGER NOT NULL,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  question   TEXT NOT NULL,
  answer     TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL,
  title      TEXT NOT NULL,
  message    TEXT NOT NULL,
  type       TEXT NOT NULL,
  related_id INTEGER,
  is_read    BOOLEAN NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id            BIGSERIAL PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
  id             BIGSERIAL PRIMARY KEY,
  name           TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  curriculum     TEXT NOT NULL DEFAULT '',
  curriculum_url TEXT NOT NULL DEFAULT '',
  number_of_days INTEGER NOT NULL DEFAULT 30,
  created_by     BIGINT NOT NULL,
  created_at     BIGINT NOT NULL,
  updated_at     BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS lessons (
  id         BIGSERIAL PRIMARY KEY,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title      TEXT NOT NULL,
  content    TEXT NOT NULL,
  day_number INTEGER NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 1,
  created_by BIGINT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS student_progress (
  id           BIGSERIAL PRIMARY KEY,
  student_id   BIGINT NOT NULL,
  subject_id   BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  lesson_id    BIGINT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  completed_at BIGINT NOT NULL,
  UNIQUE (student_id, lesson_id)
);

CREATE TABLE IF NOT EXISTS quizzes (
  id                     BIGSERIAL PRIMARY KEY,
  subject_id             BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  title                  TEXT NOT NULL,
  description            TEXT NOT NULL DEFAULT '',
  type                   TEXT NOT NULL,
  day_number             INTEGER,
  model_answer_text      TEXT,
  model_answer_image_url TEXT,
  results_published      BOOLEAN NOT NULL DEFAULT FALSE,
  created_by             BIGINT NOT NULL,
  created_at             BIGINT NOT NULL,
  updated_at             BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_questions (
  id                         BIGSERIAL PRIMARY KEY,
  quiz_id                    BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  question                   TEXT NOT NULL,
  question_type              TEXT NOT NULL,
  sort_order                 INTEGER NOT NULL,
  reference_answer_text      TEXT,
  reference_answer_image_url TEXT
);

CREATE TABLE IF NOT EXISTS quiz_options (
  id          BIGSERIAL PRIMARY KEY,
  question_id BIGINT NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
  text        TEXT NOT NULL,
  is_correct  BOOLEAN NOT NULL DEFAULT FALSE,
  sort_order  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id           BIGSERIAL PRIMARY KEY,
  quiz_id      BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  student_id   BIGINT NOT NULL,
  status       TEXT NOT NULL,
  started_at   BIGINT NOT NULL,
  submitted_at BIGINT NOT NULL,
  UNIQUE (student_id, quiz_id)
);

CREATE TABLE IF NOT EXISTS student_answers (
  id                 BIGSERIAL PRIMARY KEY,
  attempt_id         BIGINT NOT NULL REFERENCES quiz_attempts(id) ON DELETE CASCADE,
  quiz_id            BIGINT NOT NULL,
  student_id         BIGINT NOT NULL,
  question_id        BIGINT NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
  selected_option_id BIGINT,
  text_answer        TEXT,
  image_url          TEXT,
  score              INTEGER,
  feedback           TEXT,
  submitted_at       BIGINT NOT NULL,
  graded_at          BIGINT,
  graded_by          BIGINT,
  UNIQUE (attempt_id, question_id)
);
CREATE INDEX IF NOT EXISTS idx_student_answers_quiz ON student_answers (quiz_id, student_id);

CREATE TABLE IF NOT EXISTS access_permissions (
  id         BIGSERIAL PRIMARY KEY,
  student_id BIGINT NOT NULL,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  has_access BOOLEAN NOT NULL DEFAULT TRUE,
  start_date BIGINT,
  end_date   BIGINT,
  created_by BIGINT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, subject_id)
);

CREATE TABLE IF NOT EXISTS chat_history (
  id         BIGSERIAL PRIMARY KEY,
  student_id BIGINT NOT NULL,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  question   TEXT NOT NULL,
  answer     TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
  id         BIGSERIAL PRIMARY KEY,
  user_id    BIGINT NOT NULL,
  title      TEXT NOT NULL,
  message    TEXT NOT NULL,
  type       TEXT NOT NULL,
  related_id BIGINT,
  is_read    BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);
`
