package sqlinline

const QCreateJobsTable = `--sql 5d0b8e2a-7c41-4f9e-b3a6-1e2f9c7d4a10
create table if not exists image_jobs (
  id                  text primary key,
  prompt              text not null,
  model               text not null,
  original_image_ref  text not null,
  result_image_ref    text,
  status              text not null default 'pending',
  error_message       text,
  external_request_id text,
  created_at          timestamptz not null default now(),
  updated_at          timestamptz not null default now()
);
`

const QCreateJobsCreatedAtIndex = `--sql 9a3e6f14-2b8c-4d57-a0e1-7c5b3d9f2e68
create index if not exists image_jobs_created_at_idx on image_jobs (created_at desc, id desc);
`

const QInsertJob = `--sql 1f7c2a9e-4b3d-4e8a-9c6f-0d5e8b1a3c27
insert into image_jobs (
  id, prompt, model, original_image_ref, status, created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7);
`

const QSelectJobByID = `--sql 7e2d9b41-6a0c-4f35-8b7e-2c9a1d4f6e03
select
  id,
  prompt,
  model,
  original_image_ref,
  coalesce(result_image_ref, ''),
  status,
  coalesce(error_message, ''),
  coalesce(external_request_id, ''),
  created_at,
  updated_at
from image_jobs
where id = $1;
`

const QCountJobs = `--sql 3b8f0c6d-1e2a-4b97-a4d5-6f1c9e2b7a84
select count(*) from image_jobs;
`

const QListJobs = `--sql c4a17e30-8d5b-4e62-9f0a-b3e6d2c1f759
select
  id,
  prompt,
  model,
  original_image_ref,
  coalesce(result_image_ref, ''),
  status,
  coalesce(error_message, ''),
  coalesce(external_request_id, ''),
  created_at,
  updated_at
from image_jobs
order by created_at desc, id desc
offset $1
limit $2;
`

// QTransitionJob is a compare-and-set on status: zero rows means the stored
// status did not match $2 or the job is gone.
const QTransitionJob = `--sql e8d5a2f7-0c3b-4a19-b6e4-5d2f8a7c1b96
update image_jobs
set
  status              = $3,
  result_image_ref    = coalesce(nullif($4, ''), result_image_ref),
  error_message       = coalesce(nullif($5, ''), error_message),
  external_request_id = coalesce(nullif($6, ''), external_request_id),
  updated_at          = greatest($7::timestamptz, updated_at)
where id = $1
  and status = $2
returning
  id,
  prompt,
  model,
  original_image_ref,
  coalesce(result_image_ref, ''),
  status,
  coalesce(error_message, ''),
  coalesce(external_request_id, ''),
  created_at,
  updated_at;
`

const QSelectJobStatus = `--sql 6c9b3e58-2f7a-4d01-8e4c-a1d7f0b5e2c3
select status from image_jobs where id = $1;
`

const QDeleteJob = `--sql b2f6d8a1-5e9c-4c73-a8b0-4e1d7c3f9a52
delete from image_jobs where id = $1;
`
