package cloud

// SetupSQL is the script an operator runs once against the remote database
// before connecting.
func SetupSQL() string {
	return `-- Run this once against the remote database (e.g. the Supabase SQL editor):

CREATE TABLE IF NOT EXISTS app_data (
  id INTEGER PRIMARY KEY,
  payload JSONB NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

ALTER TABLE app_data ENABLE ROW LEVEL SECURITY;

DROP POLICY IF EXISTS "Allow all access" ON app_data;
CREATE POLICY "Allow all access" ON app_data FOR ALL USING (true) WITH CHECK (true);

INSERT INTO app_data (id, payload)
VALUES (1, '{"fields": [], "items": []}'::jsonb)
ON CONFLICT (id) DO NOTHING;
`
}
