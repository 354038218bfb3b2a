package sqlinline

const QCreateIntegrationTokens = `--sql 5e2b7c14-9a3d-4f60-b8e1-2c4d6f8a0b35
create table if not exists integration_tokens (
    id uuid primary key default gen_random_uuid(),
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QSelectIntegrationToken = `--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7
select token
from integration_tokens
where provider = $1::text
limit 1;
`

// QUpsertIntegrationToken keeps properties of an existing row.
const QUpsertIntegrationToken = `--sql 6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3
insert into integration_tokens (provider, token)
values ($1::text, $2::text)
on conflict (provider) do update set
    token = excluded.token,
    updated_at = now();
`
