package sqlinline

const QCreateClientKV = `--sql 3f0c2a9e-51b7-4c6d-9e2a-7d81c4b5a6f0
create table if not exists client_kv (
    key text primary key,
    value text not null,
    updated_at timestamptz not null default now()
);
`

const QSelectClientKV = `--sql b2e4d6f8-1a3c-4e5f-8a7b-9c0d1e2f3a4b
select value
from client_kv
where key = $1::text
limit 1;
`

const QUpsertClientKV = `--sql c7d9e1f3-2b4d-4f6a-9b8c-0d1e2f3a4b5c
insert into client_kv (key, value, updated_at)
values ($1::text, $2::text, now())
on conflict (key) do update set
    value = excluded.value,
    updated_at = now();
`

const QDeleteClientKV = `--sql d8e0f2a4-3c5e-4a7b-8c9d-1e2f3a4b5c6d
delete from client_kv
where key = $1::text;
`
